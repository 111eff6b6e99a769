package repair

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errPotholeNotFound = errors.New("pothole not found")
	errClaimNotFound   = errors.New("repair claim not found")
	errAlreadyRepaired = errors.New("already repaired")
)

// @Summary Submit a repair claim
// @Description Assert that a pothole has been fixed. Replaces any prior claim and its votes, and marks the pothole repaired. Last submission wins.
// @Tags potholes
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Pothole ID"
// @Param image formData file true "Photo of the repaired surface"
// @Param note formData string false "Optional note"
// @Security BearerAuth
// @Success 201 {object} models.RepairClaim
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 409 {object} map[string]string "error: Already repaired"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/repair-claim [post]
func SubmitRepairClaim(c *gin.Context) {
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

	file, err := c.FormFile("image")
	if err != nil || file == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}

	var pothole models.Pothole
	if err := db.DB.First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		return
	}
	if pothole.Status == models.StatusRepaired {
		c.JSON(http.StatusConflict, gin.H{"error": "Pothole is already marked as repaired"})
		return
	}

	imageURL, publicID, err := utils.UploadImage(file, "pothole_repair_claims", "repair")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading image: " + err.Error()})
		return
	}

	claim := models.RepairClaim{
		PotholeID:   potholeID,
		SubmittedBy: userID.(string),
		ImageURL:    imageURL,
		PublicID:    publicID,
		Note:        note,
		SubmittedAt: time.Now(),
	}

	// Last writer wins: the prior claim and all its votes are replaced
	// wholesale, and the pothole is marked repaired in the same unit.
	err = db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var locked models.Pothole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", potholeID).Error; err != nil {
			return err
		}
		if locked.Status == models.StatusRepaired {
			return errAlreadyRepaired
		}
		if err := tx.Where("pothole_id = ?", potholeID).Delete(&models.RepairVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pothole_id = ?", potholeID).Delete(&models.RepairClaim{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&models.Pothole{}).Where("id = ?", potholeID).
			Updates(map[string]interface{}{
				"status":      models.StatusRepaired,
				"repaired_at": now,
			}).Error
	})
	if err != nil {
		// The upload already happened; release the image so a failed unit
		// leaves nothing behind in the external store.
		if deleteErr := utils.DeleteImage(publicID); deleteErr != nil {
			utils.LogError(deleteErr, "Orphaned image after failed repair claim unit: "+publicID)
		}
		if errors.Is(err, errAlreadyRepaired) {
			c.JSON(http.StatusConflict, gin.H{"error": "Pothole is already marked as repaired"})
			return
		}
		utils.LogErrorWithUser(userID, err, "Error submitting repair claim in SubmitRepairClaim")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error submitting repair claim: " + err.Error()})
		return
	}

	if err := db.DB.Preload("Submitter").First(&claim, "id = ?", claim.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving created claim: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Repair claim successfully submitted in SubmitRepairClaim")
	c.JSON(http.StatusCreated, claim)
}

// @Summary Toggle an upvote on a repair claim
// @Description Add the caller's upvote, remove it if already present, or switch sides from a downvote
// @Tags potholes
// @Produce json
// @Param id path string true "Pothole ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "message and repairClaim"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Not found"
// @Failure 409 {object} map[string]string "error: Conflict"
// @Router /potholes/{id}/repair-claim/upvote [post]
func ToggleRepairUpvote(c *gin.Context) {
	toggleRepairVote(c, models.VoteUp, "")
}

// @Summary Toggle a downvote on a repair claim
// @Description Add the caller's downvote with an optional note, remove it if already present, or switch sides from an upvote
// @Tags potholes
// @Accept json
// @Produce json
// @Param id path string true "Pothole ID"
// @Param vote body models.RepairVoteInput false "Optional note"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "message and repairClaim"
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Not found"
// @Failure 409 {object} map[string]string "error: Conflict"
// @Router /potholes/{id}/repair-claim/downvote [post]
func ToggleRepairDownvote(c *gin.Context) {
	var input models.RepairVoteInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
	}
	note := strings.TrimSpace(input.Note)
	if len(note) > models.MaxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Note cannot exceed 200 characters"})
		return
	}
	toggleRepairVote(c, models.VoteDown, note)
}

func toggleRepairVote(c *gin.Context, kind models.VoteKind, note string) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	potholeID := c.Param("id")

	var message string

	run := func() error {
		return db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			// Locking the pothole row serializes all vote traffic on its claim.
			var pothole models.Pothole
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errPotholeNotFound
				}
				return err
			}

			var claim models.RepairClaim
			if err := tx.Where("pothole_id = ?", potholeID).First(&claim).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errClaimNotFound
				}
				return err
			}

			var vote models.RepairVote
			err := tx.Where("pothole_id = ? AND user_id = ?", potholeID, userID).First(&vote).Error

			if err == nil && vote.Kind == kind {
				// Same side again: un-vote.
				if err := tx.Delete(&vote).Error; err != nil {
					return err
				}
				if kind == models.VoteUp {
					message = "Upvote removed successfully"
				} else {
					message = "Downvote removed successfully"
				}
				return nil
			}

			if err == nil {
				// Opposite side present: switch sides.
				if err := tx.Delete(&vote).Error; err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			vote = models.RepairVote{
				PotholeID: potholeID,
				UserID:    userID.(string),
				Kind:      kind,
				Note:      note,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			if kind == models.VoteUp {
				message = "Upvote added successfully"
			} else {
				message = "Downvote added successfully"
			}
			return nil
		})
	}

	err := run()
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race against a concurrent toggle on the same pair; the
		// retry sees the committed state and toggles from there.
		err = run()
	}

	if err != nil {
		switch {
		case errors.Is(err, errPotholeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		case errors.Is(err, errClaimNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "No repair claim exists for this pothole"})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent vote detected, please retry"})
		default:
			utils.LogErrorWithUser(userID, err, "Error toggling repair vote in toggleRepairVote")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error toggling repair vote: " + err.Error()})
		}
		return
	}

	var claim models.RepairClaim
	if err := db.DB.Preload("Submitter").
		Preload("Votes", func(tx *gorm.DB) *gorm.DB { return tx.Order("repair_votes.created_at ASC") }).
		Preload("Votes.Voter").
		Where("pothole_id = ?", potholeID).
		First(&claim).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving repair claim: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Repair vote toggled in toggleRepairVote")
	c.JSON(http.StatusOK, gin.H{"message": message, "repairClaim": claim})
}
