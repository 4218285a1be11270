package rank

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/luchovc/agency-portal/internal/auth"
	"github.com/luchovc/agency-portal/internal/transport"
	"github.com/luchovc/agency-portal/pkg/logger"
)

type ServiceAPI interface {
	CreateRank(dto CreateRankDTO) (*Rank, error)
	GetRank(name string) (*Rank, error)
	ListRanks() ([]*Rank, error)
	UpdateRank(name string, dto UpdateRankDTO) (*Rank, error)
	DeleteRank(name string) error
	ChangeRole(ctx context.Context, actor *auth.Actor, dto ChangeRoleDTO) (*PromotionLog, error)
	ListPromotionLogs(limit, offset int) ([]*PromotionLog, error)
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

func (h *Handler) ListRanks(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.Service.ListRanks()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"ranks": ranks})
}

func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rank, err := h.Service.GetRank(name)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rank)
}

func (h *Handler) CreateRank(w http.ResponseWriter, r *http.Request) {
	var dto CreateRankDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rank, err := h.Service.CreateRank(dto)
	if err != nil {
		h.Logger.Error("CreateRank: service error", "error", err, "name", dto.Name)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rank)
}

func (h *Handler) UpdateRank(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var dto UpdateRankDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rank, err := h.Service.UpdateRank(name, dto)
	if err != nil {
		h.Logger.Error("UpdateRank: service error", "error", err, "name", name)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rank)
}

func (h *Handler) DeleteRank(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.Service.DeleteRank(name); err != nil {
		h.Logger.Error("DeleteRank: service error", "error", err, "name", name)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ChangeRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.Service.ChangeRole(r.Context(), actor, dto)
	if err != nil {
		h.Logger.Error("ChangeRole: service error", "error", err, "target", dto.UserID, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) ListPromotionLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	logs, err := h.Service.ListPromotionLogs(limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"promotions": logs,
		"limit":      limit,
		"offset":     offset,
	})
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"permissions": KnownPermissions()})
}
