package main

import (
	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

const contextKeyResolvedActor = "resolvedActor"

// routerConfig carries what the router needs besides the services.
type routerConfig struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Ready          func() error
	ReadyInfo      func() map[string]any
}

func newRouter(svc *application.Services, cfg routerConfig, logger *logging.Logger) *gin.Engine {
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger)
	if len(cfg.AllowedOrigins) > 0 {
		middlewareConfig.AllowedOrigins = cfg.AllowedOrigins
	}
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.InputSanitizer())

	if cfg.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, cfg.Ready, cfg.ReadyInfo))
	if cfg.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(cfg.Metrics))
	}

	api := router.Group("/api/v1")

	// Registration is the only call open to callers outside the directory.
	api.POST("/users", registerUserHandler(svc.Users, logger))

	authed := api.Group("")
	authed.Use(middleware.Identity(), authorize(svc.Authorizer))
	{
		authed.GET("/items", listItemsHandler(svc.Catalog, logger))
		authed.POST("/items", createItemHandler(svc.Catalog, logger))
		authed.POST("/items/import", importItemsHandler(svc.Catalog, logger))
		authed.GET("/items/:id", getItemHandler(svc.Catalog, logger))
		authed.PUT("/items/:id", updateItemHandler(svc.Catalog, logger))
		authed.DELETE("/items/:id", deleteItemHandler(svc.Catalog, logger))

		authed.GET("/warehouses", listWarehousesHandler(svc.Warehouses, logger))
		authed.POST("/warehouses", createWarehouseHandler(svc.Warehouses, logger))
		authed.PUT("/warehouses/:id", renameWarehouseHandler(svc.Warehouses, logger))
		authed.DELETE("/warehouses/:id", deleteWarehouseHandler(svc.Warehouses, logger))

		// Static routes first (must come before wildcard routes)
		authed.GET("/locations", listLocationsHandler(svc.Ledger, logger))
		authed.GET("/locations/pull-list", pullListHandler(svc.Ledger, logger))
		authed.GET("/locations/suggest/:itemId", suggestSlotHandler(svc.Ledger, logger))
		authed.POST("/locations/receive", receiveHandler(svc.Ledger, logger))
		authed.GET("/locations/:id", getLocationHandler(svc.Ledger, logger))
		authed.POST("/locations/:id/relocate", relocateHandler(svc.Ledger, logger))

		authed.GET("/requests", listRequestsHandler(svc.Requests, logger))
		authed.GET("/requests/pending/count", countPendingRequestsHandler(svc.Requests, logger))
		authed.POST("/requests", createRequestHandler(svc.Requests, logger))
		authed.GET("/requests/:id", getRequestHandler(svc.Requests, logger))
		authed.POST("/requests/:id/approve", approveRequestHandler(svc.Requests, logger))
		authed.POST("/requests/:id/reject", rejectRequestHandler(svc.Requests, logger))

		authed.GET("/search", searchHandler(svc.Search, logger))
		authed.POST("/search/image", searchImageHandler(svc.Search, logger))

		authed.GET("/users", listUsersHandler(svc.Users, logger))
		authed.GET("/users/pending/count", countPendingUsersHandler(svc.Users, logger))
		authed.POST("/users/:email/approve", approveUserHandler(svc.Users, logger))
		authed.PUT("/users/:email/role", changeRoleHandler(svc.Users, logger))
		authed.DELETE("/users/:email", deleteUserHandler(svc.Users, logger))

		authed.GET("/activity", activityHandler(svc.Activity, logger))
	}

	return router
}

// authorize resolves the caller set by Identity through the user directory.
func authorize(authorizer *application.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := authorizer.Resolve(c.Request.Context(), middleware.GetActorEmail(c))
		if err != nil {
			middleware.AbortWithAppError(c, errors.FromError(err))
			return
		}
		c.Set(contextKeyResolvedActor, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(contextKeyResolvedActor); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}

// bindJSON binds and validates the body, answering the request on failure.
func bindJSON(c *gin.Context, responder *middleware.ErrorResponder, obj interface{}) bool {
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		responder.RespondWithAppError(appErr)
		return false
	}
	return true
}
