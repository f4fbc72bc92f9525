package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/Dhoini/billing-backoffice/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Роли операторов
const (
	RoleSupport = "support"
	RoleAdmin   = "admin"
)

const (
	contextOperatorEmail = "operatorEmail"
	contextOperatorRole  = "operatorRole"
	authHeaderPrefix     = "Bearer "
)

// TokenValidator проверяет токен оператора
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims claims токена оператора
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// HMACTokenValidator проверяет токены, подписанные HMAC секретом
type HMACTokenValidator struct {
	Secret []byte
}

func (v *HMACTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Auth аутентификация операторов бэк-офиса
type Auth struct {
	validator TokenValidator
	log       *logger.Logger
}

// NewAuth создает middleware аутентификации
func NewAuth(validator TokenValidator, log *logger.Logger) *Auth {
	return &Auth{validator: validator, log: log}
}

// RequireRole пропускает операторов с одной из ролей. Без ролей: support или admin.
func (a *Auth) RequireRole(roles ...string) gin.HandlerFunc {
	if len(roles) == 0 {
		roles = []string{RoleSupport, RoleAdmin}
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, authHeaderPrefix) {
			a.reject(c, http.StatusUnauthorized, res.CodeUnauthorized, "missing authorization token")
			return
		}

		claims, err := a.validator.Validate(strings.TrimPrefix(header, authHeaderPrefix))
		if err != nil {
			a.reject(c, http.StatusUnauthorized, res.CodeUnauthorized, err.Error())
			return
		}
		if claims.Email == "" {
			a.reject(c, http.StatusUnauthorized, res.CodeUnauthorized, "operator email missing in token")
			return
		}
		if !hasRole(claims.Role, roles) {
			a.reject(c, http.StatusForbidden, res.CodeForbidden, "insufficient permissions")
			return
		}

		c.Set(contextOperatorEmail, claims.Email)
		c.Set(contextOperatorRole, claims.Role)
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func (a *Auth) reject(c *gin.Context, status int, code, message string) {
	a.log.Warnw("Operator authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{Error: message, ErrorCode: code}, status)
	c.Abort()
}

// OperatorEmail email аутентифицированного оператора
func OperatorEmail(c *gin.Context) string {
	return c.GetString(contextOperatorEmail)
}

// OperatorRole роль аутентифицированного оператора
func OperatorRole(c *gin.Context) string {
	return c.GetString(contextOperatorRole)
}

// CustomerGetter источник клиента для проверки статуса аккаунта
type CustomerGetter interface {
	Get(ctx context.Context, id string) (domain.Customer, error)
}

// RequireActiveAccount запрещает операции по приостановленному клиенту.
// Если клиента нет, решение остается за обработчиком.
func RequireActiveAccount(customers CustomerGetter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, err := customers.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.Next()
			return
		}
		if !customer.IsActive() {
			log.Warnw("Blocked operation on suspended account", "customerID", customer.ID, "path", c.Request.URL.Path)
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:     "customer account is suspended",
				ErrorCode: res.CodeForbidden,
			}, http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
