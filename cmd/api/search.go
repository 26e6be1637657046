package main

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

const maxImageBytes = 10 << 20

func searchHandler(service *application.SearchService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		res, err := service.Search(c.Request.Context(), actorFrom(c), application.SearchQuery{Text: c.Query("q")})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// searchImageHandler expects a multipart upload with the picture in the "image" field.
func searchImageHandler(service *application.SearchService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)
		header, err := c.FormFile("image")
		if err != nil {
			responder.RespondValidationError("image upload required", map[string]string{"image": "is required"})
			return
		}
		if header.Size > maxImageBytes {
			responder.RespondBadRequest("image exceeds " + strconv.Itoa(maxImageBytes>>20) + " MiB")
			return
		}

		file, err := header.Open()
		if err != nil {
			responder.RespondBadRequest("unreadable image upload")
			return
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil {
			responder.RespondBadRequest("unreadable image upload")
			return
		}

		res, err := service.SearchImage(c.Request.Context(), actorFrom(c), application.ImageSearchQuery{
			Image:       image,
			ContentType: header.Header.Get("Content-Type"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func activityHandler(service *application.ActivityService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, err := queryInt(c, "limit")
		if err != nil {
			responder.RespondBadRequest("limit must be a number")
			return
		}

		records, err := service.Recent(c.Request.Context(), actorFrom(c), limit)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"activity": records})
	}
}
