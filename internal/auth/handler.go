package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/luchovc/agency-portal/internal/transport"
	"github.com/luchovc/agency-portal/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Authenticate(dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err, "habbo_name", dto.HabboName)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.Logger.Error("registration failed", "error", err, "habbo_name", dto.HabboName)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("registration succeeded", "habbo_name", dto.HabboName)
	h.WriteJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) RequestVerificationCode(w http.ResponseWriter, r *http.Request) {
	var dto VerificationCodeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.Service.IssueVerificationCode(dto.HabboName)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, code)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	habboName := strings.TrimSpace(r.URL.Query().Get("habbo_name"))
	if habboName == "" {
		h.WriteError(w, http.StatusBadRequest, "habbo_name query parameter is required")
		return
	}

	available, err := h.Service.CheckAvailability(habboName)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"habbo_name": habboName,
		"available":  available,
	})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		h.Logger.Error("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout invalidates every session the caller holds, refresh tokens included.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	claims, err := h.Service.ValidateAccessToken(token)
	if err != nil {
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	if err := h.Service.Logout(r.Context(), claims.UserID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's request-scoped authorization context.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.WriteJSON(w, http.StatusOK, actor)
}

// AuthMiddleware validates the bearer token, rejects tokens issued before the
// user's invalidation marker and loads the actor into the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		usable, err := h.Service.TokenUsable(claims.UserID, claims.IssuedAt.Time)
		if err != nil {
			h.Logger.Error("invalidation check failed", "error", err, "user_id", claims.UserID)
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !usable {
			h.WriteError(w, http.StatusUnauthorized, "session has been invalidated")
			return
		}

		actor, err := h.Service.GetActor(r.Context(), claims.UserID)
		if err != nil {
			h.Logger.Error("failed to load actor", "error", err, "user_id", claims.UserID)
			h.WriteError(w, http.StatusUnauthorized, "user not found")
			return
		}

		ctx := ContextWithActor(r.Context(), actor)
		ctx = logger.With(ctx, "user_id", actor.ID, "role", actor.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
