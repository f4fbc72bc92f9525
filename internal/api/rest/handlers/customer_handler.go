package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/api/rest/middleware"
	"github.com/Dhoini/billing-backoffice/internal/service"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/gin-gonic/gin"
)

// CustomerHandler операции поддержки над конкретным клиентом
type CustomerHandler struct {
	customers  service.CustomerService
	suspension service.SuspensionService
	promos     service.PromoService
	billing    service.BillingSyncService
	timeline   service.TimelineService
	errs       errorResponder
	log        *logger.Logger
}

// CustomerServices сервисы, нужные обработчику клиентов
type CustomerServices struct {
	Customers  service.CustomerService
	Suspension service.SuspensionService
	Promos     service.PromoService
	Billing    service.BillingSyncService
	Timeline   service.TimelineService
}

// NewCustomerHandler создает новый обработчик клиентов
func NewCustomerHandler(svc CustomerServices, debug bool, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers:  svc.Customers,
		suspension: svc.Suspension,
		promos:     svc.Promos,
		billing:    svc.Billing,
		timeline:   svc.Timeline,
		errs:       errorResponder{log: log, debug: debug},
		log:        log,
	}
}

type applyPromoRequest struct {
	Code   string `json:"code"`
	Force  bool   `json:"force"`
	Reason string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type creditRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type suspendRequest struct {
	ReasonCode string `json:"reason_code"`
	Notes      string `json:"notes"`
}

// ApplyPromo POST /customers/:id/promo
func (h *CustomerHandler) ApplyPromo(c *gin.Context) {
	var req applyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	result, err := h.promos.Apply(c.Request.Context(), service.ApplyPromoInput{
		CustomerID: c.Param("id"),
		Code:       req.Code,
		Force:      req.Force,
		Reason:     req.Reason,
		Actor:      middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompMonth POST /customers/:id/comp-month
func (h *CustomerHandler) CompMonth(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	result, err := h.billing.CompMonth(c.Request.Context(), service.CompMonthInput{
		CustomerID: c.Param("id"),
		Reason:     req.Reason,
		Actor:      middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApplyCredit POST /customers/:id/credit
func (h *CustomerHandler) ApplyCredit(c *gin.Context) {
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	result, err := h.billing.ApplyCredit(c.Request.Context(), service.ApplyCreditInput{
		CustomerID: c.Param("id"),
		Amount:     req.Amount,
		Reason:     req.Reason,
		Actor:      middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suspend POST /customers/:id/suspend
func (h *CustomerHandler) Suspend(c *gin.Context) {
	var req suspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	_, err := h.suspension.Suspend(c.Request.Context(), service.SuspendInput{
		CustomerID: c.Param("id"),
		ReasonCode: req.ReasonCode,
		Notes:      req.Notes,
		Actor:      middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReEnable POST /customers/:id/re-enable
func (h *CustomerHandler) ReEnable(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "body", "invalid JSON body")
		return
	}

	_, err := h.suspension.ReEnable(c.Request.Context(), service.ReEnableInput{
		CustomerID: c.Param("id"),
		Reason:     req.Reason,
		Actor:      middleware.OperatorEmail(c),
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Timeline GET /customers/:id/timeline?since=RFC3339&page=N
func (h *CustomerHandler) Timeline(c *gin.Context) {
	input := service.TimelineInput{CustomerID: c.Param("id"), Page: 1}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.errs.badRequest(c, "since", "must be an RFC3339 timestamp")
			return
		}
		input.Since = since
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			h.errs.badRequest(c, "page", "must be a positive integer")
			return
		}
		input.Page = page
	}

	page, err := h.timeline.Timeline(c.Request.Context(), input)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Status GET /customers/:id/status
func (h *CustomerHandler) Status(c *gin.Context) {
	view, err := h.customers.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
