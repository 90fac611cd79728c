package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/httpx"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/rbac"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin, rbac.RoleManager))
		r.Get("/reports/stock-summary", h.stockSummary)
		r.Get("/reports/movements", h.movements)
		r.Get("/reports/lorry-activity", h.lorryActivity)
		r.Get("/reports/top-products", h.topProducts)
	})
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.StockSummary(r.Context())
	if err != nil {
		h.logger.Error("stock summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	from, to, ok := window(w, r)
	if !ok {
		return
	}
	totals, err := h.service.MovementTotals(r.Context(), from, to)
	if err != nil {
		h.logger.Error("movement totals failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "totals": totals})
}

func (h *Handler) lorryActivity(w http.ResponseWriter, r *http.Request) {
	from, to, ok := window(w, r)
	if !ok {
		return
	}
	activity, err := h.service.LorryActivity(r.Context(), from, to)
	if err != nil {
		h.logger.Error("lorry activity failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "lorries": activity})
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	from, to, ok := window(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.service.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("top products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "products": top})
}

// window parses from/to query params, defaulting to the last 30 days.
func window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be RFC3339")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be RFC3339")
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	if !to.After(from) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be after from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
