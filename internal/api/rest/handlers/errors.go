package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/Dhoini/billing-backoffice/pkg/res"
	"github.com/gin-gonic/gin"
)

// errorResponder переводит доменные ошибки в HTTP ответы
type errorResponder struct {
	log   *logger.Logger
	debug bool // отдавать текст внутренних ошибок клиенту
}

func (e errorResponder) respond(c *gin.Context, err error) {
	status, body := e.build(err)
	if status >= http.StatusInternalServerError {
		e.log.Error("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func (e errorResponder) build(err error) (int, res.ErrorResponse) {
	var (
		verrs    domain.ValidationErrors
		forceErr *domain.RequiresForceError
		provErr  *domain.BillingProviderError
	)

	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, res.ErrorResponse{Error: err.Error(), ErrorCode: res.CodeValidation, Details: verrs}
	case errors.As(err, &forceErr):
		return http.StatusBadRequest, res.ErrorResponse{
			Error:         err.Error(),
			ErrorCode:     res.CodeRequiresForce,
			RequiresForce: true,
			Reasons:       forceErr.Reasons,
		}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, res.ErrorResponse{Error: err.Error(), ErrorCode: res.CodeNotFound}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest, res.ErrorResponse{Error: err.Error(), ErrorCode: res.CodeConflict}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, res.ErrorResponse{Error: err.Error(), ErrorCode: res.CodeForbidden}
	case errors.As(err, &provErr):
		return http.StatusBadGateway, res.ErrorResponse{
			Error:           err.Error(),
			ErrorCode:       res.CodeBillingProvider,
			ProviderMessage: provErr.ProviderMessage,
		}
	}

	body := res.ErrorResponse{Error: "internal server error", ErrorCode: res.CodeInternal}
	if e.debug {
		body.DebugInfo = err.Error()
	}
	return http.StatusInternalServerError, body
}

// badRequest ответ на неразбираемое тело или параметры
func (e errorResponder) badRequest(c *gin.Context, field, message string) {
	e.respond(c, domain.NewValidationError(field, message))
}
