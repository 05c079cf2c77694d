// Package controller contains HTTP middlewares and helpers shared by the
// operational HTTP server (metrics, health, pprof): request-ID aware access
// logging and a pprof mux.
package controller
