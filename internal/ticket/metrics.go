package ticket

import "expvar"

var (
	metricTicketsOpenedTotal     = expvar.NewInt("tickets_opened_total")
	metricTicketsClaimedTotal    = expvar.NewInt("tickets_claimed_total")
	metricTicketsClosedTotal     = expvar.NewInt("tickets_closed_total")
	metricTicketDeleteErrorTotal = expvar.NewInt("ticket_delete_errors_total")
)
