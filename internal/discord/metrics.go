package discord

import "expvar"

var (
	metricMessagesSentTotal = expvar.NewInt("discord_messages_sent_total")
	metricRESTErrorsTotal   = expvar.NewInt("discord_rest_errors_total")
)
