package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

func listRequestsHandler(service *application.RequestService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, err := queryInt(c, "limit")
		if err != nil {
			responder.RespondBadRequest("limit must be a number")
			return
		}

		reqs, err := service.List(c.Request.Context(), application.ListRequestsQuery{
			Actor:  actorFrom(c),
			Status: c.Query("status"),
			Limit:  limit,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"requests": reqs, "total": len(reqs)})
	}
}

func countPendingRequestsHandler(service *application.RequestService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		count, err := service.CountPending(c.Request.Context(), actorFrom(c))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, count)
	}
}

func getRequestHandler(service *application.RequestService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		req, err := service.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, req)
	}
}

func createRequestHandler(service *application.RequestService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var body struct {
			LocationID string `json:"locationId" binding:"required"`
			Quantity   int    `json:"quantity"`
			Reason     string `json:"reason" binding:"max=500,safe_string"`
		}
		if !bindJSON(c, responder, &body) {
			return
		}

		req, err := service.Create(c.Request.Context(), application.CreateRequestCommand{
			Actor:      actorFrom(c),
			LocationID: body.LocationID,
			Quantity:   body.Quantity,
			Reason:     body.Reason,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, req)
	}
}

func approveRequestHandler(service *application.RequestService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		res, err := service.Approve(c.Request.Context(), application.DecideRequestCommand{
			Actor:     actorFrom(c),
			RequestID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func rejectRequestHandler(service *application.RequestService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		req, err := service.Reject(c.Request.Context(), application.DecideRequestCommand{
			Actor:     actorFrom(c),
			RequestID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, req)
	}
}
