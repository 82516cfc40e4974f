package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes are the extra handlers mounted next to the claim endpoints.
type Routes struct {
	Challenge     http.HandlerFunc
	Verify        http.HandlerFunc
	StatusStream  http.Handler
	Metrics       http.Handler
	Operator      func(http.Handler) http.Handler
	AccessLogging mux.MiddlewareFunc
}

func NewRouter(e *Endpoints, rt Routes) *mux.Router {
	r := mux.NewRouter()
	if rt.AccessLogging != nil {
		r.Use(rt.AccessLogging)
	}

	r.HandleFunc("/claim-reward", e.HandleClaimReward).Methods(http.MethodPost)
	r.HandleFunc("/check-transaction", e.HandleCheckTransaction).Methods(http.MethodGet)

	if rt.Challenge != nil {
		r.HandleFunc("/auth/challenge", rt.Challenge).Methods(http.MethodPost)
	}
	if rt.Verify != nil {
		r.HandleFunc("/auth/verify", rt.Verify).Methods(http.MethodPost)
	}
	if rt.StatusStream != nil {
		r.Handle("/ws/transactions", rt.StatusStream).Methods(http.MethodGet)
	}

	operator := rt.Operator
	if operator == nil {
		operator = func(http.Handler) http.Handler { return http.NotFoundHandler() }
	}
	r.Handle("/treasury", operator(http.HandlerFunc(e.HandleTreasury))).Methods(http.MethodGet)
	r.Handle("/claims", operator(http.HandlerFunc(e.HandleClaimHistory))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics)
	}
	return r
}
