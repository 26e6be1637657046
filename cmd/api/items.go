package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/csvimport"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

type itemRequest struct {
	Description     string `json:"description" binding:"required,max=200,safe_string"`
	InternalSKU     string `json:"internalSku" binding:"required,max=64,safe_string"`
	ManufacturerSKU string `json:"manufacturerSku" binding:"max=64,safe_string"`
}

func listItemsHandler(service *application.CatalogService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		items, err := service.ListItems(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
	}
}

func getItemHandler(service *application.CatalogService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		item, err := service.GetItem(c.Request.Context(), c.Param("id"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func createItemHandler(service *application.CatalogService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req itemRequest
		if !bindJSON(c, responder, &req) {
			return
		}

		item, err := service.CreateItem(c.Request.Context(), application.CreateItemCommand{
			Actor:           actorFrom(c),
			Description:     req.Description,
			InternalSKU:     req.InternalSKU,
			ManufacturerSKU: req.ManufacturerSKU,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

func updateItemHandler(service *application.CatalogService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Description     *string `json:"description" binding:"omitempty,max=200,safe_string"`
			InternalSKU     *string `json:"internalSku" binding:"omitempty,max=64,safe_string"`
			ManufacturerSKU *string `json:"manufacturerSku" binding:"omitempty,max=64,safe_string"`
		}
		if !bindJSON(c, responder, &req) {
			return
		}

		res, err := service.UpdateItem(c.Request.Context(), application.UpdateItemCommand{
			Actor:           actorFrom(c),
			ItemID:          c.Param("id"),
			Description:     req.Description,
			InternalSKU:     req.InternalSKU,
			ManufacturerSKU: req.ManufacturerSKU,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func deleteItemHandler(service *application.CatalogService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		err := service.DeleteItem(c.Request.Context(), application.DeleteItemCommand{
			Actor:  actorFrom(c),
			ItemID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// importItemsHandler accepts a CSV body or a JSON {"items": [...]} document.
func importItemsHandler(service *application.CatalogService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var rows []application.ImportRow
		if strings.HasPrefix(c.GetHeader("Content-Type"), "text/csv") {
			parsed, err := csvimport.ReadRows(c.Request.Body)
			if err != nil {
				responder.RespondBadRequest("invalid CSV: " + err.Error())
				return
			}
			rows = parsed
		} else {
			var req struct {
				Items []itemRequest `json:"items" binding:"required,min=1,dive"`
			}
			if !bindJSON(c, responder, &req) {
				return
			}
			for _, it := range req.Items {
				rows = append(rows, application.ImportRow{
					Description:     it.Description,
					InternalSKU:     it.InternalSKU,
					ManufacturerSKU: it.ManufacturerSKU,
				})
			}
		}

		res, err := service.ImportItems(c.Request.Context(), application.ImportItemsCommand{
			Actor: actorFrom(c),
			Rows:  rows,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
