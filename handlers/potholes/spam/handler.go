package spam

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultThreshold is the number of distinct spam reports that moves an
// active pothole to under_review. Override with SPAM_REPORT_THRESHOLD.
const DefaultThreshold = 5

var (
	errPotholeNotFound = errors.New("pothole not found")
	errAlreadyReported = errors.New("already reported")
)

func Threshold() int {
	if raw := os.Getenv("SPAM_REPORT_THRESHOLD"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			return value
		}
	}
	return DefaultThreshold
}

// @Summary Report a pothole as spam
// @Description Flag a pothole as bogus. One report per user, not retractable. Crossing the threshold moves an active pothole to under_review.
// @Tags potholes
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Pothole ID"
// @Param note formData string false "Optional note"
// @Param image formData file false "Optional evidence image"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "message, spamReportCount and status"
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 409 {object} map[string]string "error: Already reported"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/spam-report [post]
func ReportSpam(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	potholeID := c.Param("id")

	note := strings.TrimSpace(c.Request.FormValue("note"))
	if len(note) > models.MaxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Note cannot exceed 200 characters"})
		return
	}

	// Evidence goes through the image store, never as a caller-supplied URL.
	var imageURL, publicID string
	if file, err := c.FormFile("image"); err == nil && file != nil {
		imageURL, publicID, err = utils.UploadImage(file, "pothole_spam_reports", "spam")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading image: " + err.Error()})
			return
		}
	}

	var count int
	err := db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var pothole models.Pothole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPotholeNotFound
			}
			return err
		}

		var existing models.SpamReport
		err := tx.Where("pothole_id = ? AND user_id = ?", potholeID, userID).First(&existing).Error
		if err == nil {
			return errAlreadyReported
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		report := models.SpamReport{
			PotholeID: potholeID,
			UserID:    userID.(string),
			Note:      note,
			ImageURL:  imageURL,
			PublicID:  publicID,
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Pothole{}).Where("id = ?", potholeID).
			UpdateColumn("spam_report_count", gorm.Expr("spam_report_count + 1")).Error; err != nil {
			return err
		}
		count = pothole.SpamReportCount + 1
		return nil
	})

	if err != nil {
		// The upload already happened; a rejected report must not leave an
		// orphan behind in the external store.
		if publicID != "" {
			if deleteErr := utils.DeleteImage(publicID); deleteErr != nil {
				utils.LogError(deleteErr, "Orphaned image after failed spam report unit: "+publicID)
			}
		}
		switch {
		case errors.Is(err, errPotholeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		case errors.Is(err, errAlreadyReported):
			c.JSON(http.StatusConflict, gin.H{"error": "You have already reported this pothole as spam"})
		default:
			utils.LogErrorWithUser(userID, err, "Error creating spam report in ReportSpam")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating spam report: " + err.Error()})
		}
		return
	}

	status := escalateIfFlooded(c, potholeID)

	utils.LogSuccessWithUser(userID, "Spam report successfully created in ReportSpam")
	c.JSON(http.StatusOK, gin.H{
		"message":         "Pothole reported as spam successfully",
		"spamReportCount": count,
		"status":          status,
	})
}

// escalateIfFlooded runs the threshold rule as its own read-modify-write:
// an active pothole whose spam report count reached the threshold moves to
// under_review. The transition is one-way; nothing here ever reverses it.
func escalateIfFlooded(c *gin.Context, potholeID string) models.PotholeStatus {
	var status models.PotholeStatus

	err := db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var pothole models.Pothole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pothole, "id = ?", potholeID).Error; err != nil {
			return err
		}
		status = pothole.Status

		if pothole.SpamReportCount >= Threshold() && pothole.Status == models.StatusActive {
			if err := tx.Model(&models.Pothole{}).Where("id = ?", potholeID).
				UpdateColumn("status", models.StatusUnderReview).Error; err != nil {
				return err
			}
			status = models.StatusUnderReview
		}
		return nil
	})
	if err != nil {
		// The spam report itself is already committed; a failed escalation
		// check will be re-evaluated by the next report.
		utils.LogError(err, "Error running spam escalation check for pothole "+potholeID)
	}

	return status
}

// @Summary List the spam reports of a pothole (Admin only)
// @Description Retrieve all spam reports with reporter identities
// @Tags admin
// @Produce json
// @Param id path string true "Pothole ID"
// @Security BearerAuth
// @Success 200 {array} models.SpamReport
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/spam-reports [get]
func GetSpamReports(c *gin.Context) {
	potholeID := c.Param("id")

	var pothole models.Pothole
	if err := db.DB.First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		return
	}

	var reports []models.SpamReport
	if err := db.DB.Preload("Reporter").
		Where("pothole_id = ?", potholeID).
		Order("created_at ASC").
		Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving spam reports: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, reports)
}
