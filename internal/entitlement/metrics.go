package entitlement

import "expvar"

var (
	metricEntitlementWritesTotal = expvar.NewInt("entitlement_writes_total")
	metricEntitlementNoopTotal   = expvar.NewInt("entitlement_noop_total")
)
