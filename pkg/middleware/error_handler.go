package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

// APIErrorResponse is the body of every non-2xx reply.
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func errorBody(c *gin.Context, code, message string, details map[string]string) APIErrorResponse {
	return APIErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

// ErrorHandler answers with the last error a handler attached through c.Error,
// unless the handler already wrote a reply.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Written() {
			return
		}
		if last := c.Errors.Last(); last != nil {
			NewErrorResponder(c, logger).RespondWithError(last.Err)
		}
	}
}

// ErrorResponder writes AppErrors for one request and logs them.
type ErrorResponder struct {
	ctx    *gin.Context
	logger *slog.Logger
}

// NewErrorResponder binds a responder to c. logger may be nil.
func NewErrorResponder(c *gin.Context, logger *slog.Logger) *ErrorResponder {
	return &ErrorResponder{ctx: c, logger: logger}
}

// RespondWithError replies with err; errors that are not AppErrors become a 500.
func (r *ErrorResponder) RespondWithError(err error) {
	r.RespondWithAppError(errors.FromError(err))
}

// RespondWithAppError replies with appErr's status and body.
func (r *ErrorResponder) RespondWithAppError(appErr *errors.AppError) {
	r.log(appErr)
	r.ctx.JSON(appErr.HTTPStatus, errorBody(r.ctx, appErr.Code, appErr.Message, appErr.Details))
}

// RespondBadRequest replies 400.
func (r *ErrorResponder) RespondBadRequest(message string) {
	r.RespondWithAppError(errors.ErrBadRequest(message))
}

// RespondValidationError replies 400 with per-field messages.
func (r *ErrorResponder) RespondValidationError(message string, fields map[string]string) {
	r.RespondWithAppError(errors.ErrValidationWithFields(message, fields))
}

// log writes client errors at warn and server errors at error.
func (r *ErrorResponder) log(appErr *errors.AppError) {
	if r.logger == nil {
		return
	}
	c := r.ctx
	level := slog.LevelWarn
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	attrs := []any{
		"code", appErr.Code,
		"status", appErr.HTTPStatus,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"requestId", GetRequestID(c),
	}
	if actor := GetActorEmail(c); actor != "" {
		attrs = append(attrs, "actor", actor)
	}
	if len(appErr.Details) > 0 {
		attrs = append(attrs, "details", appErr.Details)
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}
	r.logger.Log(c.Request.Context(), level, appErr.Message, attrs...)
}

// AbortWithAppError stops the chain and replies with appErr.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, errorBody(c, appErr.Code, appErr.Message, appErr.Details))
}
