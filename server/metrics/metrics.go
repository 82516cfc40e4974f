package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ClaimRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bounce",
	Name:      "claim_requests_total",
	Help:      "POST /claim-reward outcomes.",
}, []string{"result"})

var RewardLamports = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "bounce",
	Name:      "reward_lamports_submitted_total",
	Help:      "Lamports submitted to the network as rewards.",
})

var StatusChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bounce",
	Name:      "status_checks_total",
	Help:      "Transaction status lookups by reported status.",
}, []string{"status"})

var StatusStreams = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "bounce",
	Name:      "status_streams",
	Help:      "Open websocket status streams.",
})

var TreasuryLamports = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "bounce",
	Name:      "treasury_lamports",
	Help:      "Treasury balance at the last operator query.",
})

// Claim outcome labels.
const (
	ResultSubmitted    = "submitted"
	ResultInvalid      = "invalid"
	ResultConflict     = "conflict"
	ResultUnauthorized = "unauthorized"
	ResultFailed       = "failed"
)

func init() {
	prometheus.MustRegister(ClaimRequests, RewardLamports, StatusChecks, StatusStreams, TreasuryLamports)
}

func Handler() http.Handler { return promhttp.Handler() }
