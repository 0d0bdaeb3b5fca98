package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"activities-api/ctxlog"
	"activities-api/models"
	"activities-api/registration"
)

// Registrar signs students up for activities and releases their seats.
type Registrar interface {
	Signup(ctx context.Context, activityName, email string) (*registration.Result, error)
	Unregister(ctx context.Context, activityName, email string) (*registration.Result, error)
}

// Lister produces the activity listing.
type Lister interface {
	List(ctx context.Context) (map[string]models.ActivitySummary, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Registrar Registrar
	Directory Lister
	DB        Pinger
}

// MessageResponse confirms a successful signup or unregister.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON error envelope. Detail matches what the browser
// client displays; Kind is stable for programmatic callers.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind"`
}

// SendJSON is a helper for sending JSON responses
func SendJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// Routes registers every endpoint on mux. staticDir is served under /static/.
func (h *Handlers) Routes(mux *http.ServeMux, staticDir string) {
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /health", h.HandleHealth)

	mux.HandleFunc("GET /activities", h.HandleListActivities)
	mux.HandleFunc("POST /activities/{name}/signup", h.HandleSignup)
	mux.HandleFunc("DELETE /activities/{name}/unregister", h.HandleUnregister)
}

// HandleRoot handles GET /
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/static/index.html", http.StatusTemporaryRedirect)
}

// HandleHealth handles GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.PingContext(r.Context()); err != nil {
			ctxlog.FromContext(r.Context()).Error("health check failed", "error", err)
			SendJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	SendJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListActivities handles GET /activities
func (h *Handlers) HandleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.Directory.List(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	SendJSON(w, r, http.StatusOK, activities)
}

// HandleSignup handles POST /activities/{name}/signup?email=
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	res, err := h.Registrar.Signup(r.Context(), r.PathValue("name"), r.URL.Query().Get("email"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	SendJSON(w, r, http.StatusOK, MessageResponse{Message: res.Message()})
}

// HandleUnregister handles DELETE /activities/{name}/unregister?email=
func (h *Handlers) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	res, err := h.Registrar.Unregister(r.Context(), r.PathValue("name"), r.URL.Query().Get("email"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	SendJSON(w, r, http.StatusOK, MessageResponse{Message: res.Message()})
}

func (h *Handlers) sendError(w http.ResponseWriter, r *http.Request, err error) {
	var regErr *registration.Error
	if errors.As(err, &regErr) {
		SendJSON(w, r, StatusFor(regErr.Kind), ErrorResponse{Detail: regErr.Message, Kind: string(regErr.Kind)})
		return
	}

	ctxlog.FromContext(r.Context()).Error("request failed", "error", err)
	SendJSON(w, r, http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error", Kind: "internal"})
}

// StatusFor maps a registration failure to its HTTP status.
func StatusFor(k registration.Kind) int {
	switch k {
	case registration.KindNotFound:
		return http.StatusNotFound
	case registration.KindAlreadyRegistered,
		registration.KindCapacityExceeded,
		registration.KindNotRegistered,
		registration.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
