package middleware

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

var (
	skuPattern        = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]{0,63}$`)
	safeStringPattern = regexp.MustCompile(`^[^\x00-\x08\x0B\x0C\x0E-\x1F\x7F]*$`)
)

// customTags are the binding tags this service adds to validator's built-ins.
var customTags = map[string]validator.Func{
	"sku": func(fl validator.FieldLevel) bool {
		return skuPattern.MatchString(fl.Field().String())
	},
	"app_role": func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		return role == "puller" || role == "manager"
	},
	"safe_string": func(fl validator.FieldLevel) bool {
		return safeStringPattern.MatchString(fl.Field().String())
	},
}

// fieldMessages renders one failed tag for the details map.
var fieldMessages = map[string]func(param string) string{
	"required":    func(string) string { return "is required" },
	"min":         func(p string) string { return "must be at least " + p },
	"max":         func(p string) string { return "must be at most " + p },
	"gte":         func(p string) string { return "must be greater than or equal to " + p },
	"gt":          func(p string) string { return "must be greater than " + p },
	"oneof":       func(p string) string { return "must be one of: " + p },
	"email":       func(string) string { return "must be a valid email address" },
	"sku":         func(string) string { return "must be a valid SKU (letters, digits, . _ / -)" },
	"app_role":    func(string) string { return "must be one of: puller, manager" },
	"safe_string": func(string) string { return "contains invalid characters" },
}

var validatorOnce sync.Once

// InitValidator registers the custom tags on gin's binding engine and makes
// field errors use json names.
func InitValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range customTags {
			_ = v.RegisterValidation(tag, fn)
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

func fieldErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		msg := "is invalid"
		if render, ok := fieldMessages[e.Tag()]; ok {
			msg = render(e.Param())
		}
		fields[e.Field()] = msg
	}
	return fields
}

// BindAndValidate decodes the JSON body into obj and runs its binding tags.
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if stderrors.As(err, &invalid) {
		return errors.ErrValidationWithFields("validation failed", fieldErrors(invalid))
	}
	return errors.ErrBadRequest("invalid request body: " + err.Error())
}

// SanitizeString strips null bytes and surrounding whitespace.
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer applies SanitizeString to every query parameter.
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for _, values := range query {
			for i := range values {
				values[i] = SanitizeString(values[i])
			}
		}
		c.Request.URL.RawQuery = query.Encode()
		c.Next()
	}
}

var acceptedContentTypes = []string{"application/json", "multipart/form-data", "text/csv"}

// ContentType rejects bodies that are not JSON, CSV or a multipart upload.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength > 0 && !acceptedContentType(c.GetHeader("Content-Type")) {
				AbortWithAppError(c, errors.NewAppError("INVALID_CONTENT_TYPE",
					"Content-Type must be application/json, text/csv or multipart/form-data",
					http.StatusUnsupportedMediaType))
				return
			}
		}
		c.Next()
	}
}

func acceptedContentType(contentType string) bool {
	for _, accepted := range acceptedContentTypes {
		if strings.HasPrefix(contentType, accepted) {
			return true
		}
	}
	return false
}
