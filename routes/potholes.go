package routes

import (
	"github.com/sahzadahmad246/potholemap/handlers/potholes"
	"github.com/sahzadahmad246/potholemap/handlers/potholes/comment"
	"github.com/sahzadahmad246/potholemap/handlers/potholes/repair"
	"github.com/sahzadahmad246/potholemap/handlers/potholes/spam"
	"github.com/sahzadahmad246/potholemap/handlers/potholes/upvote"
	"github.com/sahzadahmad246/potholemap/middleware"

	"github.com/gin-gonic/gin"
)

func PotholesRoutes(r *gin.Engine) {
	// Public routes
	r.GET("/potholes", potholes.GetAllPotholes)
	r.GET("/potholes/nearby", potholes.FindNearby)
	r.GET("/potholes/:id", potholes.GetPotholeByID)
	r.GET("/potholes/:id/comments", comment.GetComments)

	// Protected routes
	potholesRoutes := r.Group("/potholes")
	potholesRoutes.Use(middleware.JWTAuth())
	{
		potholesRoutes.POST("", potholes.CreatePothole)
		potholesRoutes.DELETE("/:id", potholes.DeletePothole)

		// Interaction routes
		potholesRoutes.POST("/:id/upvote", upvote.ToggleUpvote)
		potholesRoutes.POST("/:id/spam-report", spam.ReportSpam)
		potholesRoutes.POST("/:id/repair-claim", repair.SubmitRepairClaim)
		potholesRoutes.POST("/:id/repair-claim/upvote", repair.ToggleRepairUpvote)
		potholesRoutes.POST("/:id/repair-claim/downvote", repair.ToggleRepairDownvote)
		potholesRoutes.POST("/:id/comment", comment.CreateComment)
		potholesRoutes.PATCH("/:id/comment/:commentId", comment.UpdateComment)
		potholesRoutes.DELETE("/:id/comment/:commentId", comment.DeleteComment)
	}

	// Admin routes
	adminRoutes := r.Group("/potholes")
	adminRoutes.Use(middleware.AdminAuth())
	{
		adminRoutes.GET("/:id/spam-reports", spam.GetSpamReports)
	}
}
