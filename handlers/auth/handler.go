package auth

import (
	"errors"
	"net/http"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Sign in with a provider-verified profile
// @Description Upsert the user keyed by email and issue a JWT. The profile is expected to come from the identity provider after it verified the user.
// @Tags auth
// @Accept json
// @Produce json
// @Param profile body models.SignInInput true "Verified provider profile"
// @Success 200 {object} map[string]interface{} "token and user"
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /auth/signin [post]
func SignIn(c *gin.Context) {
	var input models.SignInInput

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if !utils.ValidateEmail(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	var user models.User
	err := db.DB.Where("email = ?", input.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:     input.Email,
			Name:      input.Name,
			AvatarURL: input.AvatarURL,
			Role:      models.UserRole,
		}
		if err := db.DB.Create(&user).Error; err != nil {
			utils.LogError(err, "Error creating user in SignIn")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user: " + err.Error()})
			return
		}
		utils.LogSuccessWithUser(user.ID, "User created in SignIn")
	} else if err != nil {
		utils.LogError(err, "Error looking up user in SignIn")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error looking up user: " + err.Error()})
		return
	}

	token, err := utils.GenerateJWT(user, 72)
	if err != nil {
		utils.LogError(err, "Error generating token in SignIn")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(user.ID, "Sign-in successful in SignIn")
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
