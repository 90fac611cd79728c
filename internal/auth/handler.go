package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/httpx"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/rbac"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/users"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	users    *users.Service
}

func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, users *users.Service) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions, users: users}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/me", h.me)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Warn("login rejected", slog.String("username", req.Username))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid username or password")
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Session Error", "no session on request")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.Set(rbac.SessionRoleKey, user.Role)

	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"full_name": user.FullName,
		"role":      user.Role,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorID(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
		return
	}
	user, err := h.users.Get(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
