package utils

import (
	"regexp"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

// ValidateLatitude checks that lat is a usable WGS84 latitude
func ValidateLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidateLongitude checks that lng is a usable WGS84 longitude
func ValidateLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
