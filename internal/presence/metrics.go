package presence

import "expvar"

var (
	metricPresenceLookupsTotal  = expvar.NewInt("presence_lookups_total")
	metricPresenceDegradedTotal = expvar.NewInt("presence_degraded_total")
)
