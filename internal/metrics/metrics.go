// Package metrics registers the coordinator's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SplitsCreated counts splits accepted by the ledger.
	SplitsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitpay_splits_created_total",
		Help: "Number of splits created.",
	})

	// Settlements counts settlement attempts by outcome. The outcome label is
	// "settled" for success, otherwise the rejection reason.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitpay_settlements_total",
		Help: "Number of settlement attempts by outcome.",
	}, []string{"outcome"})

	// TransfersMoved counts token units moved to payers by successful
	// settlements.
	TransfersMoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitpay_transferred_units_total",
		Help: "Token units moved to payers by successful settlements.",
	})
)
