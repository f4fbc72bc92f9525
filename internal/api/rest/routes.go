package rest

import (
	"github.com/Dhoini/billing-backoffice/internal/api/rest/handlers"
	"github.com/Dhoini/billing-backoffice/internal/api/rest/middleware"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies все, что нужно роутеру
type Dependencies struct {
	Services  handlers.CustomerServices
	Validator middleware.TokenValidator
	Registry  *prometheus.Registry
	Health    map[string]handlers.Pinger
	Debug     bool
	Log       *logger.Logger
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck(deps.Health))
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	auth := middleware.NewAuth(deps.Validator, deps.Log)
	customerHandler := handlers.NewCustomerHandler(deps.Services, deps.Debug, deps.Log)
	promoHandler := handlers.NewPromoHandler(deps.Services.Promos, deps.Debug, deps.Log)
	activeOnly := middleware.RequireActiveAccount(deps.Services.Customers, deps.Log)

	v1 := r.Group("/api/v1")
	{
		customers := v1.Group("/customers/:id", auth.RequireRole())
		{
			customers.POST("/promo", activeOnly, customerHandler.ApplyPromo)
			customers.POST("/comp-month", activeOnly, customerHandler.CompMonth)
			customers.POST("/credit", activeOnly, customerHandler.ApplyCredit)
			customers.POST("/suspend", customerHandler.Suspend)
			customers.POST("/re-enable", customerHandler.ReEnable)
			customers.GET("/timeline", customerHandler.Timeline)
			customers.GET("/status", customerHandler.Status)
		}

		promos := v1.Group("/promo-codes", auth.RequireRole(middleware.RoleAdmin))
		{
			promos.POST("", promoHandler.Create)
			promos.GET("/:code", promoHandler.Get)
			promos.PATCH("/:code", promoHandler.Edit)
			promos.POST("/:code/deactivate", promoHandler.Deactivate)
		}
	}

	return r
}
