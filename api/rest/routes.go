package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thecardroom/tcr/api"
)

func setupRouter(network string, runner Runner, payments PaymentReader, wsHub *api.WSHub) http.Handler {
	r := mux.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.HandleFunc("/", HomeHandler).Methods("GET")
	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/status", GetStatus(network, runner, payments, wsHub)).Methods("GET")

	// Payment ledger (?status=pending|minted|refunded|rejected)
	apiRouter.HandleFunc("/payments", GetPayments(payments)).Methods("GET")
	apiRouter.HandleFunc("/payments/{id}", GetPayment(payments)).Methods("GET")

	apiRouter.HandleFunc("/ws/status", GetWSStatus(wsHub)).Methods("GET")

	return r
}
