package routes

import (
	"github.com/sahzadahmad246/potholemap/handlers/auth"

	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine) {
	r.POST("/auth/signin", auth.SignIn)
}
