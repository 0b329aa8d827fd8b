package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/common"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler exposes order-entry sessions over HTTP.
type Handler struct {
	Svc *Service
}

type selectClientRequest struct {
	ClientID string `json:"clientId" validate:"required"`
}

type addLineRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// Create handles POST /api/v1/sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get handles GET /api/v1/sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	h.respond(r.Context(), w, h.Svc.Get, chi.URLParam(r, "id"))
}

// SelectClient handles PUT /api/v1/sessions/{id}/client.
func (h *Handler) SelectClient(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req selectClientRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.SelectClient(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.ClientID))
	h.write(w, view, err)
}

// ClearClient handles DELETE /api/v1/sessions/{id}/client.
func (h *Handler) ClearClient(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	h.respond(r.Context(), w, h.Svc.ClearClient, chi.URLParam(r, "id"))
}

// AddLine handles POST /api/v1/sessions/{id}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req addLineRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.ProductID))
	h.write(w, view, err)
}

// Increment handles POST /api/v1/sessions/{id}/lines/{productId}/increment.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.Svc.Increment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	h.write(w, view, err)
}

// Decrement handles POST /api/v1/sessions/{id}/lines/{productId}/decrement.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.Svc.Decrement(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	h.write(w, view, err)
}

// RemoveLine handles DELETE /api/v1/sessions/{id}/lines/{productId}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	h.write(w, view, err)
}

// Submit handles POST /api/v1/sessions/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sellerID, _ := common.UserID(r.Context())
	o, err := h.Svc.Submit(r.Context(), chi.URLParam(r, "id"), sellerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, fn func(context.Context, string) (View, error), id string) {
	view, err := fn(ctx, id)
	h.write(w, view, err)
}

func (h *Handler) write(w http.ResponseWriter, view View, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func decode(r *http.Request, dst any) error {
	if err := common.DecodeJSON(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return &common.AppError{Code: "BAD_REQUEST", Message: "invalid payload", HTTPStatus: http.StatusBadRequest, Err: err, Details: details}
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, catalog.ErrClientNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "client not found", nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "product is not in the cart", nil)
	case errors.Is(err, ErrNotReady):
		common.JSONError(w, http.StatusUnprocessableEntity, "ORDER_NOT_READY", "select a client and add at least one product", nil)
	case errors.Is(err, ErrSubmissionInFlight):
		common.JSONError(w, http.StatusConflict, "SUBMISSION_IN_FLIGHT", "a submission for this session is already running", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		common.JSONError(w, http.StatusServiceUnavailable, "COMMIT_TIMEOUT", "order commit did not complete", nil)
	default:
		common.WriteError(w, err)
	}
}
