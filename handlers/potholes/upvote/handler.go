package upvote

import (
	"errors"
	"net/http"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errPotholeNotFound = errors.New("pothole not found")

// @Summary Toggle an upvote on a pothole
// @Description Add the caller's upvote, or remove it if already present
// @Tags potholes
// @Produce json
// @Param id path string true "Pothole ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "message, state and upvotes"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/upvote [post]
func ToggleUpvote(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	potholeID := c.Param("id")

	var state string
	var upvotes int

	// The row lock serializes concurrent toggles on the same (pothole, user)
	// pair: the second one sees the first one's write, never a stale count.
	err := db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var pothole models.Pothole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPotholeNotFound
			}
			return err
		}

		var vote models.PotholeUpvote
		result := tx.Where("pothole_id = ? AND user_id = ?", potholeID, userID).First(&vote)

		if result.Error == nil {
			if err := tx.Delete(&vote).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Pothole{}).Where("id = ?", potholeID).
				UpdateColumn("upvotes", gorm.Expr("GREATEST(upvotes - 1, 0)")).Error; err != nil {
				return err
			}
			state = "removed"
			upvotes = pothole.Upvotes - 1
			if upvotes < 0 {
				upvotes = 0
			}
			return nil
		}

		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}

		vote = models.PotholeUpvote{
			PotholeID: potholeID,
			UserID:    userID.(string),
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Pothole{}).Where("id = ?", potholeID).
			UpdateColumn("upvotes", gorm.Expr("upvotes + 1")).Error; err != nil {
			return err
		}
		state = "upvoted"
		upvotes = pothole.Upvotes + 1
		return nil
	})

	if err != nil {
		if errors.Is(err, errPotholeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
			return
		}
		utils.LogErrorWithUser(userID, err, "Error toggling upvote in ToggleUpvote")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error toggling upvote: " + err.Error()})
		return
	}

	message := "Upvote added successfully"
	if state == "removed" {
		message = "Upvote removed successfully"
	}

	utils.LogSuccessWithUser(userID, "Upvote toggled in ToggleUpvote")
	c.JSON(http.StatusOK, gin.H{"message": message, "state": state, "upvotes": upvotes})
}
