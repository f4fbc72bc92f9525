package handlers

import (
	"net/http"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/api/rest/middleware"
	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/service"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/gin-gonic/gin"
)

// PromoHandler управление промокодами (только admin)
type PromoHandler struct {
	promos service.PromoService
	errs   errorResponder
	log    *logger.Logger
}

// NewPromoHandler создает обработчик промокодов
func NewPromoHandler(promos service.PromoService, debug bool, log *logger.Logger) *PromoHandler {
	return &PromoHandler{
		promos: promos,
		errs:   errorResponder{log: log, debug: debug},
		log:    log,
	}
}

type createPromoRequest struct {
	Code             string           `json:"code"`
	Type             domain.PromoType `json:"type"`
	FreeDays         int              `json:"free_days"`
	DiscountPercent  int              `json:"discount_percent"`
	DurationMonths   int              `json:"duration_months"`
	MaxRedemptions   *int             `json:"max_redemptions"`
	ExpiresAt        *time.Time       `json:"expires_at"`
	NewCustomersOnly bool             `json:"new_customers_only"`
	OnePerCustomer   bool             `json:"one_per_customer"`
	Reason           string           `json:"reason"`
}

type editPromoRequest struct {
	MaxRedemptions      *int       `json:"max_redemptions"`
	ClearMaxRedemptions bool       `json:"clear_max_redemptions"`
	ExpiresAt           *time.Time `json:"expires_at"`
	ClearExpiresAt      bool       `json:"clear_expires_at"`
	NewCustomersOnly    *bool      `json:"new_customers_only"`
	OnePerCustomer      *bool      `json:"one_per_customer"`
	Reason              string     `json:"reason"`
}

// Create POST /promo-codes
func (h *PromoHandler) Create(c *gin.Context) {
	var req createPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	promo, err := h.promos.Create(c.Request.Context(), service.CreatePromoInput{
		Code:             req.Code,
		Type:             req.Type,
		FreeDays:         req.FreeDays,
		DiscountPercent:  req.DiscountPercent,
		DurationMonths:   req.DurationMonths,
		MaxRedemptions:   req.MaxRedemptions,
		ExpiresAt:        req.ExpiresAt,
		NewCustomersOnly: req.NewCustomersOnly,
		OnePerCustomer:   req.OnePerCustomer,
		Reason:           req.Reason,
		Actor:            middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, promo)
}

// Get GET /promo-codes/:code
func (h *PromoHandler) Get(c *gin.Context) {
	promo, err := h.promos.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, promo)
}

// Edit PATCH /promo-codes/:code
func (h *PromoHandler) Edit(c *gin.Context) {
	var req editPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	promo, err := h.promos.Edit(c.Request.Context(), service.EditPromoInput{
		Code:                c.Param("code"),
		MaxRedemptions:      req.MaxRedemptions,
		ClearMaxRedemptions: req.ClearMaxRedemptions,
		ExpiresAt:           req.ExpiresAt,
		ClearExpiresAt:      req.ClearExpiresAt,
		NewCustomersOnly:    req.NewCustomersOnly,
		OnePerCustomer:      req.OnePerCustomer,
		Reason:              req.Reason,
		Actor:               middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, promo)
}

// Deactivate POST /promo-codes/:code/deactivate
func (h *PromoHandler) Deactivate(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	err := h.promos.Deactivate(c.Request.Context(), service.DeactivatePromoInput{
		Code:   c.Param("code"),
		Reason: req.Reason,
		Actor:  middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
