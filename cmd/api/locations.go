package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

type slotRequest struct {
	Warehouse string            `json:"warehouse" binding:"required,max=100,safe_string"`
	Row       domain.Coordinate `json:"row" binding:"required,max=20,safe_string"`
	Column    domain.Coordinate `json:"column" binding:"required,max=20,safe_string"`
	Floor     domain.Coordinate `json:"floor" binding:"required,max=20,safe_string"`
}

func listLocationsHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, err := queryInt(c, "limit")
		if err != nil {
			responder.RespondBadRequest("limit must be a number")
			return
		}
		inStock, _ := strconv.ParseBool(c.Query("inStock"))

		locations, err := service.ListLocations(c.Request.Context(), application.ListLocationsQuery{
			Warehouse:   c.Query("warehouse"),
			ItemID:      c.Query("itemId"),
			InStockOnly: inStock,
			Limit:       limit,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"locations": locations, "total": len(locations)})
	}
}

func pullListHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		locations, err := service.PullList(c.Request.Context(), c.Query("warehouse"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"locations": locations, "total": len(locations)})
	}
}

func getLocationHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		loc, err := service.GetLocation(c.Request.Context(), c.Param("id"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, loc)
	}
}

func suggestSlotHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		suggestion, err := service.SuggestSlot(c.Request.Context(), c.Param("itemId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, suggestion)
	}
}

func receiveHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ItemID string `json:"itemId" binding:"required"`
			slotRequest
			Quantity int `json:"quantity"`
		}
		if !bindJSON(c, responder, &req) {
			return
		}

		res, err := service.Receive(c.Request.Context(), application.ReceiveCommand{
			Actor:     actorFrom(c),
			ItemID:    req.ItemID,
			Warehouse: req.Warehouse,
			Row:       req.Row,
			Column:    req.Column,
			Floor:     req.Floor,
			Quantity:  req.Quantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		c.JSON(status, res)
	}
}

func relocateHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req slotRequest
		if !bindJSON(c, responder, &req) {
			return
		}

		res, err := service.Relocate(c.Request.Context(), application.RelocateCommand{
			Actor:      actorFrom(c),
			LocationID: c.Param("id"),
			Warehouse:  req.Warehouse,
			Row:        req.Row,
			Column:     req.Column,
			Floor:      req.Floor,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
