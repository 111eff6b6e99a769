package comment

import (
	"net/http"
	"strings"
	"time"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Get the comments of a pothole
// @Description Retrieve all comments with their author identities, oldest first
// @Tags comments
// @Produce json
// @Param id path string true "Pothole ID"
// @Success 200 {object} map[string]interface{} "comments"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/comments [get]
func GetComments(c *gin.Context) {
	potholeID := c.Param("id")

	var pothole models.Pothole
	if err := db.DB.First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		return
	}

	var comments []models.Comment
	if err := db.DB.Preload("Author").
		Where("pothole_id = ?", potholeID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving comments: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// @Summary Comment on a pothole
// @Description Add a comment and index the pothole on the author's profile, as one atomic unit
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Pothole ID"
// @Param comment body models.CommentInput true "Comment content"
// @Security BearerAuth
// @Success 201 {object} models.Comment
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/comment [post]
func CreateComment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	potholeID := c.Param("id")

	content, ok := bindCommentContent(c)
	if !ok {
		return
	}

	var pothole models.Pothole
	if err := db.DB.First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		return
	}

	comment := models.Comment{
		PotholeID: potholeID,
		UserID:    userID.(string),
		Content:   content,
	}

	// Comment and back-reference land together or not at all.
	err := db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		ref := models.UserPotholeRef{
			UserID:    userID.(string),
			PotholeID: potholeID,
			Kind:      models.CommentedRef,
		}
		return tx.Where(models.UserPotholeRef{
			UserID:    ref.UserID,
			PotholeID: ref.PotholeID,
			Kind:      ref.Kind,
		}).FirstOrCreate(&ref).Error
	})
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating comment in CreateComment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating comment: " + err.Error()})
		return
	}

	if err := db.DB.Preload("Author").First(&comment, "id = ?", comment.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving created comment: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Comment successfully created in CreateComment")
	c.JSON(http.StatusCreated, comment)
}

// @Summary Edit a comment
// @Description Replace the content of the caller's own comment; the timestamp is reset
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Pothole ID"
// @Param commentId path string true "Comment ID"
// @Param comment body models.CommentInput true "New content"
// @Security BearerAuth
// @Success 200 {object} models.Comment
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Comment not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/comment/{commentId} [patch]
func UpdateComment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	potholeID := c.Param("id")
	commentID := c.Param("commentId")

	content, ok := bindCommentContent(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := db.DB.First(&comment, "id = ? AND pothole_id = ?", commentID, potholeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.UserID != userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	if err := db.DB.Model(&comment).Updates(map[string]interface{}{
		"content":    content,
		"created_at": time.Now(),
	}).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "Error updating comment in UpdateComment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating comment: " + err.Error()})
		return
	}

	if err := db.DB.Preload("Author").First(&comment, "id = ?", comment.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving updated comment: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Comment successfully updated in UpdateComment")
	c.JSON(http.StatusOK, comment)
}

// @Summary Delete a comment
// @Description Delete the caller's own comment. The pothole is removed from the author's commented index when no other comment of theirs remains.
// @Tags comments
// @Produce json
// @Param id path string true "Pothole ID"
// @Param commentId path string true "Comment ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Comment deleted successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Comment not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id}/comment/{commentId} [delete]
func DeleteComment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	potholeID := c.Param("id")
	commentID := c.Param("commentId")

	var comment models.Comment
	if err := db.DB.First(&comment, "id = ? AND pothole_id = ?", commentID, potholeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.UserID != userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	err := db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}

		// The back-reference stays as long as the author has any other
		// comment on this pothole.
		var remaining int64
		if err := tx.Model(&models.Comment{}).
			Where("pothole_id = ? AND user_id = ?", potholeID, userID).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.Where("user_id = ? AND pothole_id = ? AND kind = ?",
				userID, potholeID, models.CommentedRef).
				Delete(&models.UserPotholeRef{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error deleting comment in DeleteComment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting comment: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Comment successfully deleted in DeleteComment")
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func bindCommentContent(c *gin.Context) (string, bool) {
	var input models.CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment data"})
		return "", false
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment text is required"})
		return "", false
	}
	if len(content) > models.MaxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment cannot exceed 200 characters"})
		return "", false
	}
	return content, true
}
