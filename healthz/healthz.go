// Package healthz provides the liveness and readiness handlers served on
// the debug port.
package healthz

import (
	"net/http"
	"sync/atomic"
)

// Handler answers 200 OK once marked ready, and 503 before that.  Liveness
// handlers are created ready; the readiness handler is marked ready after
// the Firestore client comes up.
type Handler struct {
	ready atomic.Bool
}

func New() *Handler {
	h := &Handler{}
	h.ready.Store(true)
	return h
}

func NewGated() *Handler {
	return &Handler{}
}

func (h *Handler) SetReady() {
	h.ready.Store(true)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		http.Error(w, "503 Not Ready", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("200 OK"))
}
