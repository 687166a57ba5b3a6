package dispatch

import "expvar"

var (
	metricDispatchTotal        = expvar.NewInt("dispatch_total")
	metricDispatchUnknownTotal = expvar.NewInt("dispatch_unknown_total")
	metricDispatchErrorsTotal  = expvar.NewInt("dispatch_errors_total")
	metricDispatchPanicsTotal  = expvar.NewInt("dispatch_panics_total")
)
