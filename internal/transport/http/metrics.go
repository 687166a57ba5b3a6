package httptransport

import "expvar"

var (
	metricInteractionTotal         = expvar.NewInt("interaction_total")
	metricInteractionRejectedTotal = expvar.NewInt("interaction_signature_rejected_total")
	metricInteractionInvalidTotal  = expvar.NewInt("interaction_invalid_total")
)
