package routes

import (
	"github.com/sahzadahmad246/potholemap/handlers/users"
	"github.com/sahzadahmad246/potholemap/middleware"

	"github.com/gin-gonic/gin"
)

func UsersRoutes(r *gin.Engine) {
	usersRoutes := r.Group("/users")
	usersRoutes.Use(middleware.JWTAuth())
	{
		usersRoutes.GET("/me", users.GetMyProfile)
	}
}
