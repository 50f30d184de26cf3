package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	balanceParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_balance_parse_failures_total",
		Help: "Stored balances that could not be parsed and were treated as zero",
	}, []string{"table"})

	txRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_tx_retries_total",
		Help: "Ledger transactions retried after a serialization failure",
	})

	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_reconcile_total",
		Help: "Gateway callback reconciliations by outcome",
	}, []string{"result"})
)
