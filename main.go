package main

import (
	"log"

	"github.com/sahzadahmad246/potholemap/db"
	_ "github.com/sahzadahmad246/potholemap/docs"
	"github.com/sahzadahmad246/potholemap/routes"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
)

// @title Potholemap API
// @version 1.0
// @description Citizen pothole reporting backend: reports, votes, spam moderation, repair claims and nearby search
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = utils.LogWriter()

	db.InitDB()

	if err := utils.InitCloudinary(); err != nil {
		log.Printf("Warning: Cloudinary initialization failed: %v", err)
		log.Println("Image uploads will not work correctly.")
	}

	r := routes.SetupRouter()

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Error starting the server:", err)
	}
}
