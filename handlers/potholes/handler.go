package potholes

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxPageSize = 100

// @Summary Report a new pothole
// @Description Create a pothole record with images, a geolocation and optional metadata
// @Tags potholes
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param location formData string true "GeoJSON point, coordinates [longitude, latitude]"
// @Param address formData string true "Street address"
// @Param area formData string false "Area name"
// @Param criticality formData string false "low, medium or high"
// @Param dimensions formData string false "JSON object with length, width, depth"
// @Param taggedOfficials formData string false "JSON array of tagged officials"
// @Param images formData file true "Pothole images"
// @Security BearerAuth
// @Success 201 {object} models.Pothole
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes [post]
func CreatePothole(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	title := c.Request.FormValue("title")
	description := c.Request.FormValue("description")
	address := c.Request.FormValue("address")
	if title == "" || description == "" || address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: title, description, address"})
		return
	}

	locationStr := c.Request.FormValue("location")
	if locationStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Location is required"})
		return
	}
	var location models.GeoPoint
	if err := json.Unmarshal([]byte(locationStr), &location); err != nil || location.Type != "Point" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location format"})
		return
	}
	lng, lat := location.Coordinates[0], location.Coordinates[1]
	if !utils.ValidateLongitude(lng) || !utils.ValidateLatitude(lat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid latitude or longitude"})
		return
	}

	criticality := models.Criticality(c.Request.FormValue("criticality"))
	switch criticality {
	case "":
		criticality = models.CriticalityMedium
	case models.CriticalityLow, models.CriticalityMedium, models.CriticalityHigh:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid criticality"})
		return
	}

	var dimensions *models.Dimensions
	if dimensionsStr := c.Request.FormValue("dimensions"); dimensionsStr != "" {
		dimensions = &models.Dimensions{}
		if err := json.Unmarshal([]byte(dimensionsStr), dimensions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dimensions format: " + err.Error()})
			return
		}
	}

	var taggedOfficials []models.TaggedOfficial
	if officialsStr := c.Request.FormValue("taggedOfficials"); officialsStr != "" {
		var parsed []models.TaggedOfficial
		if err := json.Unmarshal([]byte(officialsStr), &parsed); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid taggedOfficials format: " + err.Error()})
			return
		}
		for _, official := range parsed {
			switch official.Role {
			case models.Contractor, models.Engineer, models.Corporator, models.MLA, models.MP, models.Pradhan:
				taggedOfficials = append(taggedOfficials, official)
			}
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one image is required"})
		return
	}

	// Upload first; the store is external so a failed DB unit below has to
	// compensate by deleting whatever was already uploaded.
	var uploaded []models.PotholeImage
	for _, file := range files {
		url, publicID, err := utils.UploadImage(file, "potholes", "pothole")
		if err != nil {
			releaseImages(uploaded)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading image: " + err.Error()})
			return
		}
		uploaded = append(uploaded, models.PotholeImage{URL: url, PublicID: publicID})
	}

	pothole := models.Pothole{
		Title:           title,
		Description:     description,
		Latitude:        lat,
		Longitude:       lng,
		Address:         address,
		Area:            c.Request.FormValue("area"),
		ReportedBy:      userID.(string),
		Status:          models.StatusActive,
		Criticality:     criticality,
		Images:          uploaded,
		TaggedOfficials: taggedOfficials,
		Dimensions:      dimensions,
	}

	err = db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pothole).Error; err != nil {
			return err
		}
		ref := models.UserPotholeRef{
			UserID:    userID.(string),
			PotholeID: pothole.ID,
			Kind:      models.ReportedRef,
		}
		return tx.Where(models.UserPotholeRef{
			UserID:    ref.UserID,
			PotholeID: ref.PotholeID,
			Kind:      ref.Kind,
		}).FirstOrCreate(&ref).Error
	})
	if err != nil {
		releaseImages(uploaded)
		utils.LogErrorWithUser(userID, err, "Error creating pothole in CreatePothole")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating pothole: " + err.Error()})
		return
	}

	if err := db.DB.Preload("Images").Preload("TaggedOfficials").Preload("Reporter").
		First(&pothole, "id = ?", pothole.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving created pothole: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Pothole successfully created in CreatePothole")
	c.JSON(http.StatusCreated, pothole)
}

// releaseImages is the compensating action for failed create units. A delete
// that itself fails leaves an orphan in the image store, so it is logged for
// out-of-band reconciliation instead of being silently dropped.
func releaseImages(images []models.PotholeImage) {
	for _, image := range images {
		if err := utils.DeleteImage(image.PublicID); err != nil {
			utils.LogError(err, "Orphaned image after failed pothole unit: "+image.PublicID)
		}
	}
}

// @Summary Get the pothole feed
// @Description Retrieve potholes ordered by report date with optional filters
// @Tags potholes
// @Produce json
// @Param status query string false "Filter by status"
// @Param criticality query string false "Filter by criticality"
// @Param area query string false "Filter by area"
// @Param page query int false "Page number, 1-indexed"
// @Param limit query int false "Page size, max 100"
// @Success 200 {object} map[string]interface{} "data and pagination"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes [get]
func GetAllPotholes(c *gin.Context) {
	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	query := db.DB.Model(&models.Pothole{}).Where("deleted = ? AND hidden = ?", false, false)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if criticality := c.Query("criticality"); criticality != "" {
		query = query.Where("criticality = ?", criticality)
	}
	if area := c.Query("area"); area != "" {
		query = query.Where("area = ?", area)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting potholes: " + err.Error()})
		return
	}

	var potholes []models.Pothole
	if err := query.Preload("Images").Preload("Reporter").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&potholes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving potholes: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       potholes,
		"pagination": paginationMeta(total, page, limit),
	})
}

// @Summary Get a pothole by ID
// @Description Retrieve a single pothole with reporter, comments, spam reports and repair claim populated
// @Tags potholes
// @Produce json
// @Param id path string true "Pothole ID"
// @Success 200 {object} models.Pothole
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Router /potholes/{id} [get]
func GetPotholeByID(c *gin.Context) {
	var pothole models.Pothole
	potholeID := c.Param("id")

	if err := db.DB.
		Preload("Images").
		Preload("TaggedOfficials").
		Preload("Reporter").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB { return tx.Order("comments.created_at ASC") }).
		Preload("Comments.Author").
		Preload("SpamReports.Reporter").
		Preload("RepairClaim.Submitter").
		Preload("RepairClaim.Votes", func(tx *gorm.DB) *gorm.DB { return tx.Order("repair_votes.created_at ASC") }).
		Preload("RepairClaim.Votes.Voter").
		First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pothole})
}

// @Summary Delete a pothole
// @Description Soft-delete a pothole and release its stored images
// @Tags potholes
// @Produce json
// @Param id path string true "Pothole ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Pothole deleted successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Pothole not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/{id} [delete]
func DeletePothole(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var pothole models.Pothole
	potholeID := c.Param("id")

	if err := db.DB.Preload("Images").First(&pothole, "id = ? AND deleted = ?", potholeID, false).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pothole not found"})
		return
	}

	role, _ := c.Get("role")
	if pothole.ReportedBy != userID.(string) && role != string(models.AdminRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this pothole"})
		return
	}

	if err := db.DB.Model(&pothole).Update("deleted", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting pothole: " + err.Error()})
		return
	}

	releaseImages(pothole.Images)

	utils.LogSuccessWithUser(userID, "Pothole successfully deleted in DeletePothole")
	c.JSON(http.StatusOK, gin.H{"message": "Pothole deleted successfully"})
}

func parsePagination(c *gin.Context) (page int, limit int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, 0, false
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, true
}

func paginationMeta(total int64, page, limit int) gin.H {
	return gin.H{
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": int(math.Ceil(float64(total) / float64(limit))),
	}
}
