package server

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	//go:embed pages/hello.html
	helloPage []byte

	//go:embed pages/404.html
	notFoundPage []byte
)

// NewRouter returns the routes of the hello server:
//
//	GET /         hello page
//	GET /sleep    hello page after delay
//	GET /metrics  Prometheus exposition of gatherer
//
// Every other method or path gets the 404 page.
func NewRouter(delay time.Duration, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", hello).Methods(http.MethodGet)
	r.HandleFunc("/sleep", sleep(delay)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	return r
}

func hello(w http.ResponseWriter, _ *http.Request) {
	writePage(w, http.StatusOK, helloPage)
}

func sleep(delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-r.Context().Done():
			return
		}
		writePage(w, http.StatusOK, helloPage)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writePage(w, http.StatusNotFound, notFoundPage)
}

func writePage(w http.ResponseWriter, status int, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}
