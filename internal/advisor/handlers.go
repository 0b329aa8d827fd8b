package advisor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/common"
)

const maxSalesPoints = 36

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler exposes suggestion endpoints.
type Handler struct {
	Svc *Service
}

// ProductDescription handles POST /advisor/products/{id}/description.
func (h *Handler) ProductDescription(w http.ResponseWriter, r *http.Request) {
	sg, err := h.Svc.ProductDescription(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sg, err)
}

// PricingStrategy handles POST /advisor/products/{id}/pricing.
func (h *Handler) PricingStrategy(w http.ResponseWriter, r *http.Request) {
	sg, err := h.Svc.PricingStrategy(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sg, err)
}

// SalesTrends handles POST /advisor/sales-trends with a [{month,sales,orders}] body.
func (h *Handler) SalesTrends(w http.ResponseWriter, r *http.Request) {
	var points []MonthlySales
	if err := common.DecodeJSON(r, &points); err != nil {
		common.WriteError(w, err)
		return
	}
	if len(points) == 0 || len(points) > maxSalesPoints {
		common.WriteError(w, common.BadRequest("body", "between 1 and 36 monthly points are required", nil))
		return
	}
	details := map[string]string{}
	for i, p := range points {
		var verrs validator.ValidationErrors
		if err := validate.Struct(p); errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fmt.Sprintf("[%d].%s", i, fe.Field())] = fe.Tag()
			}
		}
	}
	if len(details) > 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales series", details)
		return
	}
	sg, err := h.Svc.SalesTrends(r.Context(), points)
	h.respond(w, sg, err)
}

func (h *Handler) respond(w http.ResponseWriter, sg Suggestion, err error) {
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sg})
}
