package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// Config holds middleware configuration
type Config struct {
	Logger         *logging.Logger
	ServiceName    string
	AllowedOrigins []string
	TrustedProxies []string
}

// DefaultConfig returns a default middleware configuration
func DefaultConfig(serviceName string, logger *logging.Logger) *Config {
	return &Config{
		Logger:         logger,
		ServiceName:    serviceName,
		AllowedOrigins: []string{"*"},
	}
}

// Setup applies all standard middleware to a Gin router
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(Recovery(config.Logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	router.Use(AccessLog(config.Logger, "/health", "/ready", "/metrics"))
	router.Use(CORS(config.AllowedOrigins))
	router.Use(ContentType())
	router.Use(ErrorHandler(config.Logger.Logger))
}

// CORS answers preflight requests and decorates responses using rs/cors.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	handler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", HeaderUserEmail, HeaderRequestID, HeaderCorrelationID},
		ExposedHeaders: []string{HeaderRequestID, HeaderCorrelationID},
		MaxAge:         86400,
	})

	return func(c *gin.Context) {
		handler.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HealthCheck creates a health check handler
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	}
}

// ReadinessCheck answers 503 while checkFn fails. info, when non-nil, adds
// fields to the reply.
func ReadinessCheck(serviceName string, checkFn func() error, info func() map[string]any) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ready", "service": serviceName}
		if info != nil {
			for k, v := range info() {
				body[k] = v
			}
		}
		status := http.StatusOK
		if err := checkFn(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "not ready"
			body["error"] = err.Error()
		}
		c.JSON(status, body)
	}
}

// NoRoute answers unknown paths in the API error format.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(c, "ROUTE_NOT_FOUND", "The requested resource was not found", nil))
	}
}

// NoMethod answers known paths called with the wrong method.
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorBody(c, "METHOD_NOT_ALLOWED", "The request method is not supported for this resource", nil))
	}
}
