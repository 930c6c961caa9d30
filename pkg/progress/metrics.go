package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsTotal tracks status writes
	ReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_progress_reports_total",
			Help: "Total number of harvest status reports written",
		},
	)

	// LedgerErrors tracks ledger operation errors
	LedgerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_progress_errors_total",
			Help: "Total number of progress ledger operation errors",
		},
		[]string{"operation"}, // "report", "get", "delete"
	)
)
