package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

type warehouseRequest struct {
	Name string `json:"name" binding:"required,max=100,safe_string"`
}

func listWarehousesHandler(service *application.WarehouseService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		warehouses, err := service.List(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
	}
}

func createWarehouseHandler(service *application.WarehouseService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req warehouseRequest
		if !bindJSON(c, responder, &req) {
			return
		}

		w, err := service.Create(c.Request.Context(), application.CreateWarehouseCommand{
			Actor: actorFrom(c),
			Name:  req.Name,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, w)
	}
}

func renameWarehouseHandler(service *application.WarehouseService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req warehouseRequest
		if !bindJSON(c, responder, &req) {
			return
		}

		res, err := service.Rename(c.Request.Context(), application.RenameWarehouseCommand{
			Actor:       actorFrom(c),
			WarehouseID: c.Param("id"),
			Name:        req.Name,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func deleteWarehouseHandler(service *application.WarehouseService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		res, err := service.Delete(c.Request.Context(), application.DeleteWarehouseCommand{
			Actor:       actorFrom(c),
			WarehouseID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
