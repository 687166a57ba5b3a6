package access

import "expvar"

var metricAccessDeniedTotal = expvar.NewInt("access_denied_total")
