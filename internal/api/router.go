// Package api exposes the transaction endpoints the dashboard uses.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/spendtrail/spendtrail/internal/api/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Tokens         map[string]string
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter wires the routes behind Recovery, Logger, RequestID and CORS.
// Everything under /api/transactions also requires a bearer token.
func NewRouter(h *TransactionsHandler, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	tx := r.PathPrefix("/api/transactions").Subrouter()
	tx.Use(middleware.Auth(opts.Tokens))
	tx.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	tx.HandleFunc("", h.List).Methods(http.MethodGet)
	tx.HandleFunc("/", h.List).Methods(http.MethodGet)
	tx.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)
	tx.HandleFunc("/export", h.Export).Methods(http.MethodGet)
	tx.HandleFunc("/all", h.DeleteAll).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return middleware.Recovery(opts.Log)(
		middleware.Logger(opts.Log)(
			middleware.RequestID(opts.Log)(
				middleware.CORS(opts.AllowedOrigins)(r),
			),
		),
	)
}
