package audit

import "expvar"

var (
	metricAuditQueuedTotal  = expvar.NewInt("audit_queued_total")
	metricAuditDroppedTotal = expvar.NewInt("audit_dropped_total")
	metricAuditSentTotal    = expvar.NewInt("audit_sent_total")
	metricAuditFailedTotal  = expvar.NewInt("audit_failed_total")
)
