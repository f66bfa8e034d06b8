package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires the task request workflow onto the router. The fixed
// "/migrations" path is registered before the "/{id}" pattern so it is never
// captured as an id.
func RegisterRoutes(r *mux.Router, h *TaskRequestHandler, auth *AuthMiddleware, operator *OperatorMiddleware) {
	r.Use(RequestLogger)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	tr := r.PathPrefix("/taskRequests").Subrouter()
	tr.Use(auth.Middleware)

	tr.Handle("/migrations", operator.Require(http.HandlerFunc(h.Migrate))).Methods(http.MethodPost)

	tr.HandleFunc("", h.List).Methods(http.MethodGet)
	tr.HandleFunc("", h.Create).Methods(http.MethodPost)
	tr.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	tr.HandleFunc("/{id}/approve", h.Approve).Methods(http.MethodPatch)
	tr.HandleFunc("/{id}/reject", h.Reject).Methods(http.MethodPatch)
}

// Health reports process liveness.
func (h *TaskRequestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
