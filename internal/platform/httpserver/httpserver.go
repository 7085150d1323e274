package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server tuned for the certification API. Decision and
// reassignment requests hold a distributed lock while they run, so the write
// timeout stays generous enough to cover a slow store round trip.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
