package sysconfig

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/luchovc/agency-portal/internal/transport"
	"github.com/luchovc/agency-portal/pkg/logger"
)

type ServiceAPI interface {
	GetAll() (map[string]string, error)
	Update(dto UpdateConfigDTO) (map[string]string, error)
	ListBusinessHours() ([]*BusinessHour, error)
	UpsertBusinessHour(dto BusinessHourDTO) (*BusinessHour, error)
	ListSpecialDays() ([]*SpecialDay, error)
	CreateSpecialDay(dto SpecialDayDTO) (*SpecialDay, error)
	DeleteSpecialDay(id int64) error
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

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.Service.GetAll()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"config": values})
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var dto UpdateConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	values, err := h.Service.Update(dto)
	if err != nil {
		h.Logger.Error("UpdateConfig: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"config": values})
}

func (h *Handler) ListBusinessHours(w http.ResponseWriter, r *http.Request) {
	hours, err := h.Service.ListBusinessHours()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"business_hours": hours})
}

func (h *Handler) UpsertBusinessHour(w http.ResponseWriter, r *http.Request) {
	var dto BusinessHourDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hour, err := h.Service.UpsertBusinessHour(dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, hour)
}

func (h *Handler) ListSpecialDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.Service.ListSpecialDays()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"special_days": days})
}

func (h *Handler) CreateSpecialDay(w http.ResponseWriter, r *http.Request) {
	var dto SpecialDayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := h.Service.CreateSpecialDay(dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, day)
}

func (h *Handler) DeleteSpecialDay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid special day id")
		return
	}

	if err := h.Service.DeleteSpecialDay(id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
