package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

func registerUserHandler(service *application.UserService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Email string `json:"email" binding:"required,email"`
			Role  string `json:"role" binding:"required,app_role"`
		}
		if !bindJSON(c, responder, &req) {
			return
		}

		user, err := service.Register(c.Request.Context(), application.RegisterUserCommand{
			Email: req.Email,
			Role:  req.Role,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

func listUsersHandler(service *application.UserService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		users, err := service.List(c.Request.Context(), actorFrom(c))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

func countPendingUsersHandler(service *application.UserService, logger *logging.Logger) gin.HandlerFunc {
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

func approveUserHandler(service *application.UserService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		user, err := service.Approve(c.Request.Context(), application.UserCommand{
			Actor: actorFrom(c),
			Email: c.Param("email"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

func changeRoleHandler(service *application.UserService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Role string `json:"role" binding:"required,app_role"`
		}
		if !bindJSON(c, responder, &req) {
			return
		}

		user, err := service.ChangeRole(c.Request.Context(), application.ChangeRoleCommand{
			Actor: actorFrom(c),
			Email: c.Param("email"),
			Role:  req.Role,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

func deleteUserHandler(service *application.UserService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		err := service.Delete(c.Request.Context(), application.UserCommand{
			Actor: actorFrom(c),
			Email: c.Param("email"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
