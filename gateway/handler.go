// Package gateway exposes sessions over HTTP: a websocket per connection and
// read-only ledger endpoints.
package gateway

import (
	"codeshare/auth"
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadLimit    int64
}

type Handler struct {
	log     *slog.Logger
	cfg     Config
	service services.ISessionService
}

func NewHandler(log *slog.Logger, cfg Config, service services.ISessionService) *Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 8 << 20
	}
	return &Handler{log: log, cfg: cfg, service: service}
}

// NewRouter mounts every session route behind the bearer token middleware.
// /metrics stays public.
func NewRouter(h *Handler, authenticator contract.Authenticator, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	authenticated := auth.Middleware(authenticator)
	router.Handle("/sessions", authenticated(http.HandlerFunc(h.createSession))).Methods(http.MethodPost)
	router.Handle("/sessions", authenticated(http.HandlerFunc(h.listSessions))).Methods(http.MethodGet)

	sessions := router.PathPrefix("/sessions/{sessionID}").Subrouter()
	sessions.Use(authenticated)
	sessions.HandleFunc("/ws", h.serveWebSocket).Methods(http.MethodGet)
	sessions.HandleFunc("/ledger", h.exportLedger).Methods(http.MethodGet)
	sessions.HandleFunc("/ledger/verify", h.verifyLedger).Methods(http.MethodGet)
	return router
}

type createSessionRequest struct {
	SessionID  string            `json:"session_id,omitempty"`
	Language   string            `json:"language,omitempty"`
	Visibility domain.Visibility `json:"visibility,omitempty"`
}

type createSessionResponse struct {
	SessionID domain.SessionID `json:"session_id"`
}

// createSession makes the caller the owner of a new session.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	var body createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, errors.ErrInvalidPayload)
			return
		}
	}
	id, err := h.service.Create(domain.SessionID(body.SessionID), identity.UserID, body.Language, body.Visibility)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("Session created", "session_id", id, "user_id", identity.UserID)
	h.writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (h *Handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Sessions())
}

func (h *Handler) exportLedger(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	chain, err := h.service.Chain(sessionIDOf(r), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chain)
}

func (h *Handler) verifyLedger(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	verification, err := h.service.Verify(sessionIDOf(r), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, verification)
}

func sessionIDOf(r *http.Request) domain.SessionID {
	return domain.SessionID(mux.Vars(r)["sessionID"])
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Debug("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusOf(err), map[string]string{"code": errors.Code(err), "error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, errors.ErrRelayStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
