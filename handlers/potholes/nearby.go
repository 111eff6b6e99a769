package potholes

import (
	"net/http"
	"strconv"

	"github.com/sahzadahmad246/potholemap/db"
	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Spherical-earth (haversine) distance in meters between the query point and a
// pothole row. Placeholders are latitude, longitude, latitude of the center.
const distanceExpr = "(6371000 * acos(least(1.0, greatest(-1.0, " +
	"cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?)) + " +
	"sin(radians(?)) * sin(radians(latitude))))))"

// @Summary Find potholes near a point or inside a bounding box
// @Description Proximity search ordered by distance, or bounding-box retrieval. When an explicit radius yields no results on page 1 the search relaxes to the closest potholes, with total set to the size of that relaxed result set.
// @Tags potholes
// @Produce json
// @Param latitude query number false "Center latitude"
// @Param longitude query number false "Center longitude"
// @Param maxDistance query number false "Radius in meters"
// @Param minLat query number false "Bounding box min latitude"
// @Param maxLat query number false "Bounding box max latitude"
// @Param minLng query number false "Bounding box min longitude"
// @Param maxLng query number false "Bounding box max longitude"
// @Param page query int false "Page number, 1-indexed"
// @Param limit query int false "Page size, max 100"
// @Success 200 {object} map[string]interface{} "data and pagination"
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /potholes/nearby [get]
func FindNearby(c *gin.Context) {
	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	if hasBoundingBox(c) {
		findInBoundingBox(c, page, limit)
		return
	}

	latitude, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	longitude, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
	if errLat != nil || errLng != nil || !utils.ValidateLatitude(latitude) || !utils.ValidateLongitude(longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid latitude or longitude"})
		return
	}

	var maxDistance float64
	if raw := c.Query("maxDistance"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxDistance"})
			return
		}
		maxDistance = parsed
	}

	capped := visiblePotholes()
	if maxDistance > 0 {
		capped = capped.Where(distanceExpr+" <= ?", latitude, longitude, latitude, maxDistance)
	}

	var total int64
	if err := capped.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting potholes: " + err.Error()})
		return
	}

	var potholes []models.Pothole
	query := visiblePotholes().
		Select("potholes.*, "+distanceExpr+" AS distance", latitude, longitude, latitude)
	if maxDistance > 0 {
		query = query.Where(distanceExpr+" <= ?", latitude, longitude, latitude, maxDistance)
	}
	if err := withNearbyPreloads(query).
		Order("distance ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&potholes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving potholes: " + err.Error()})
		return
	}

	// Relaxed search: nothing within the requested radius, so return the
	// closest potholes instead. The total becomes the size of this fallback
	// set, which is how clients can tell the radius was lifted.
	if len(potholes) == 0 && maxDistance > 0 && page == 1 {
		fallback := visiblePotholes().
			Select("potholes.*, "+distanceExpr+" AS distance", latitude, longitude, latitude)
		if err := withNearbyPreloads(fallback).
			Order("distance ASC").
			Limit(limit).
			Find(&potholes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving potholes: " + err.Error()})
			return
		}
		total = int64(len(potholes))
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       potholes,
		"pagination": paginationMeta(total, page, limit),
	})
}

func hasBoundingBox(c *gin.Context) bool {
	return c.Query("minLat") != "" || c.Query("maxLat") != "" ||
		c.Query("minLng") != "" || c.Query("maxLng") != ""
}

func findInBoundingBox(c *gin.Context, page, limit int) {
	minLat, err1 := strconv.ParseFloat(c.Query("minLat"), 64)
	maxLat, err2 := strconv.ParseFloat(c.Query("maxLat"), 64)
	minLng, err3 := strconv.ParseFloat(c.Query("minLng"), 64)
	maxLng, err4 := strconv.ParseFloat(c.Query("maxLng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bounding box"})
		return
	}
	if !utils.ValidateLatitude(minLat) || !utils.ValidateLatitude(maxLat) ||
		!utils.ValidateLongitude(minLng) || !utils.ValidateLongitude(maxLng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bounding box coordinates"})
		return
	}
	if minLat > maxLat || minLng > maxLng {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bounding box min must not exceed max"})
		return
	}

	bounded := visiblePotholes().
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng)

	var total int64
	if err := bounded.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting potholes: " + err.Error()})
		return
	}

	var potholes []models.Pothole
	query := visiblePotholes().
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng)
	if err := withNearbyPreloads(query).
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

// visiblePotholes is the base filter shared by all geospatial queries.
func visiblePotholes() *gorm.DB {
	return db.DB.Model(&models.Pothole{}).
		Where("deleted = ? AND hidden = ? AND status <> ?", false, false, models.StatusRepaired)
}

func withNearbyPreloads(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Images").
		Preload("Reporter").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB { return tx.Order("comments.created_at ASC") }).
		Preload("Comments.Author")
}
