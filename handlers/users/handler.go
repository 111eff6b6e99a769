package users

import (
	"net/http"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
)

// @Summary Get the caller's profile
// @Description Retrieve the profile plus the pothole back-reference sets. Vote sets are derived from the authoritative vote tables; reported and commented come from the denormalized index.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "user and back-reference sets"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: User not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /users/me [get]
func GetMyProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	reported, err := refIDs(userID, models.ReportedRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile: " + err.Error()})
		return
	}
	commented, err := refIDs(userID, models.CommentedRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile: " + err.Error()})
		return
	}

	// Vote membership is read from the pothole-side tables, the single
	// source of truth for "has this user voted".
	var upvoted []string
	if err := db.DB.Model(&models.PotholeUpvote{}).
		Where("user_id = ?", userID).
		Pluck("pothole_id", &upvoted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile: " + err.Error()})
		return
	}

	var spamReported []string
	if err := db.DB.Model(&models.SpamReport{}).
		Where("user_id = ?", userID).
		Pluck("pothole_id", &spamReported).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile: " + err.Error()})
		return
	}

	var repairUpvotes []string
	if err := db.DB.Model(&models.RepairVote{}).
		Where("user_id = ? AND kind = ?", userID, models.VoteUp).
		Pluck("pothole_id", &repairUpvotes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile: " + err.Error()})
		return
	}

	var repairDownvotes []string
	if err := db.DB.Model(&models.RepairVote{}).
		Where("user_id = ? AND kind = ?", userID, models.VoteDown).
		Pluck("pothole_id", &repairDownvotes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Profile successfully retrieved in GetMyProfile")
	c.JSON(http.StatusOK, gin.H{
		"user":                 user,
		"reportedPotholes":     reported,
		"commentedPotholes":    commented,
		"upvotedPotholes":      upvoted,
		"spamReportedPotholes": spamReported,
		"repairUpvotes":        repairUpvotes,
		"repairDownvotes":      repairDownvotes,
	})
}

func refIDs(userID interface{}, kind models.RefKind) ([]string, error) {
	var ids []string
	err := db.DB.Model(&models.UserPotholeRef{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Pluck("pothole_id", &ids).Error
	return ids, err
}
