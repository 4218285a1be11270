package timesession

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/luchovc/agency-portal/internal/auth"
	"github.com/luchovc/agency-portal/internal/transport"
	"github.com/luchovc/agency-portal/pkg/logger"
)

type ServiceAPI interface {
	Start(userID int64, dto StartSessionDTO) (*TimeSession, error)
	Pause(userID int64) (*TimeSession, error)
	Resume(userID int64) (*TimeSession, error)
	Stop(userID int64) (*TimeSession, error)
	Cancel(userID int64) (int64, error)
	Current(userID int64, role string) (*SessionView, error)
	ListOpen() ([]*SessionView, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto StartSessionDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.Service.Start(actor.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Pause)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Resume)
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Stop)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deleted, err := h.Service.Cancel(actor.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// Current serves the polling endpoint for the caller's own timer.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.Service.Current(actor.ID, actor.Role)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.ListOpen()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(int64) (*TimeSession, error)) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := op(actor.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, session)
}
