// Package debug serves the operational endpoints behind the --debug_addr
// listener: Prometheus metrics, the pprof family, and health/readiness
// probes for a running upload process.
package debug

import (
	"net/http"
	"net/http/pprof"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ready atomic.Bool

	// Handlers registered by other packages before the mux is built
	handlersMu sync.RWMutex
	handlers   = make(map[string]http.Handler)
)

// SetReady marks the process ready; /ready serves 200 from then on.
func SetReady() {
	ready.Store(true)
}

func IsReady() bool {
	return ready.Load()
}

// RegisterHandler mounts a custom handler on the debug mux.
// Must be called before GetMux to be included.
func RegisterHandler(pattern string, handler http.Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[pattern] = handler
}

// RegisterHandlerFunc mounts a custom handler function on the debug mux.
// Must be called before GetMux to be included.
func RegisterHandlerFunc(pattern string, handler http.HandlerFunc) {
	RegisterHandler(pattern, handler)
}

// GetMux builds the debug mux: /metrics, pprof under /debug/, /health,
// /ready, and any registered custom handlers.
func GetMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/", http.HandlerFunc(pprof.Index))
	mux.Handle("/debug/allocs/", pprof.Handler("allocs"))
	mux.Handle("/debug/block/", pprof.Handler("block"))
	mux.Handle("/debug/cmdline", http.HandlerFunc(pprof.Cmdline))
	mux.Handle("/debug/goroutine/", pprof.Handler("goroutine"))
	mux.Handle("/debug/heap/", pprof.Handler("heap"))
	mux.Handle("/debug/mutex/", pprof.Handler("mutex"))
	mux.Handle("/debug/profile", http.HandlerFunc(pprof.Profile))
	mux.Handle("/debug/symbol", http.HandlerFunc(pprof.Symbol))
	mux.Handle("/debug/trace", http.HandlerFunc(pprof.Trace))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	handlersMu.RLock()
	defer handlersMu.RUnlock()
	for pattern, handler := range handlers {
		mux.Handle(pattern, handler)
	}

	return mux
}
