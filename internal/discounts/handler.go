package discounts

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/httpx"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/rbac"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
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
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin, rbac.RoleManager, rbac.RoleLoader))
		r.Get("/shops", h.listShops)
		r.Get("/shops/{id}", h.getShop)
		r.Get("/shops/{id}/discounts", h.history)
		r.Get("/sub-discount-types", h.listSubTypes)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin, rbac.RoleManager))
		r.Post("/shops", h.createShop)
		r.Post("/sub-discount-types", h.createSubType)
		r.Post("/discounts", h.createDiscount)
	})
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	shops, err := h.service.ListShops(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list shops failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shops": shops})
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "shop id must be numeric")
		return
	}
	shop, err := h.service.GetShop(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, shop)
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	var req CreateShopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	shop, err := h.service.CreateShop(r.Context(), req)
	if err != nil {
		h.logger.Error("create shop failed", slog.Any("error", err))
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, shop)
}

func (h *Handler) listSubTypes(w http.ResponseWriter, r *http.Request) {
	subTypes, err := h.service.ListSubTypes(r.Context())
	if err != nil {
		h.logger.Error("list sub-discount types failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sub_discount_types": subTypes})
}

func (h *Handler) createSubType(w http.ResponseWriter, r *http.Request) {
	var req CreateSubTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	subType, err := h.service.CreateSubType(r.Context(), req)
	if err != nil {
		h.logger.Error("create sub-discount type failed", slog.Any("error", err))
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, subType)
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	req.ActorID = shared.ActorID(r.Context())

	discount, err := h.service.CreateDiscount(r.Context(), req)
	if err != nil {
		h.logger.Error("create discount failed", slog.Any("error", err), slog.Int64("shop_id", req.ShopID))
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, discount)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "shop id must be numeric")
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	discounts, err := h.service.History(r.Context(), id, limit, offset)
	if err != nil {
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"discounts": discounts})
}

func mapError(err error) error {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, ErrShopNotFound), errors.Is(err, ErrSubTypeNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err)
	case errors.Is(err, ErrExceedsCap):
		return fmt.Errorf("%w: %s", httpx.ErrConflict, err)
	case errors.As(err, &verr):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	default:
		return err
	}
}
