package cdc

import "expvar"

var (
	metricCDCTicksTotal          = expvar.NewInt("cdc_ticks_total")
	metricCDCNotificationsTotal  = expvar.NewInt("cdc_notifications_total")
	metricCDCFailuresTotal       = expvar.NewInt("cdc_failures_total")
	metricCDCNotifyFailuresTotal = expvar.NewInt("cdc_notify_failures_total")
	metricCDCLogsSuppressedTotal = expvar.NewInt("cdc_logs_suppressed_total")
	metricCDCSkippedBusyTotal    = expvar.NewInt("cdc_skipped_busy_total")
	metricCDCSkippedBackoffTotal = expvar.NewInt("cdc_skipped_backoff_total")
	metricCDCDegradedSeedTotal   = expvar.NewInt("cdc_degraded_seed_total")
)
