package models

import (
	"time"

	"gorm.io/gorm"
)

type PotholeStatus string

const (
	StatusActive      PotholeStatus = "active"
	StatusUnderReview PotholeStatus = "under_review"
	StatusRepaired    PotholeStatus = "repaired"
)

type Criticality string

const (
	CriticalityLow    Criticality = "low"
	CriticalityMedium Criticality = "medium"
	CriticalityHigh   Criticality = "high"
)

type OfficialRole string

const (
	Contractor OfficialRole = "contractor"
	Engineer   OfficialRole = "engineer"
	Corporator OfficialRole = "corporator"
	MLA        OfficialRole = "mla"
	MP         OfficialRole = "mp"
	Pradhan    OfficialRole = "pradhan"
)

// GeoPoint is the GeoJSON-style point used on the wire. Coordinates are
// [longitude, latitude], longitude first.
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type Dimensions struct {
	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Depth  *float64 `json:"depth,omitempty"`
}

type Pothole struct {
	ID          string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Latitude    float64       `json:"-" gorm:"index:idx_potholes_coords"`
	Longitude   float64       `json:"-" gorm:"index:idx_potholes_coords"`
	Location    GeoPoint      `json:"location" gorm:"-"`
	Address     string        `json:"address"`
	Area        string        `json:"area"`
	ReportedBy  string        `json:"reportedBy" gorm:"column:reported_by;index"`
	Reporter    *User         `json:"reporter,omitempty" gorm:"foreignKey:ReportedBy"`
	Status      PotholeStatus `json:"status" gorm:"default:active;index:idx_potholes_feed,priority:1"`
	Criticality Criticality   `json:"criticality" gorm:"default:medium;index:idx_potholes_feed,priority:2"`

	Upvotes         int `json:"upvotes" gorm:"default:0"`
	SpamReportCount int `json:"spamReportCount" gorm:"column:spam_report_count;default:0"`

	Images          []PotholeImage   `json:"images" gorm:"foreignKey:PotholeID"`
	TaggedOfficials []TaggedOfficial `json:"taggedOfficials,omitempty" gorm:"foreignKey:PotholeID"`
	Comments        []Comment        `json:"comments" gorm:"foreignKey:PotholeID"`
	SpamReports     []SpamReport     `json:"spamReports,omitempty" gorm:"foreignKey:PotholeID"`
	RepairClaim     *RepairClaim     `json:"repairClaim,omitempty" gorm:"foreignKey:PotholeID"`

	Dimensions *Dimensions `json:"dimensions,omitempty" gorm:"embedded;embeddedPrefix:dim_"`

	RepairedAt *time.Time `json:"repairedAt,omitempty" gorm:"column:repaired_at"`
	Hidden     bool       `json:"hidden" gorm:"default:false"`
	Deleted    bool       `json:"deleted" gorm:"default:false"`

	// Distance is only populated by proximity queries.
	Distance *float64 `json:"distance,omitempty" gorm:"->;-:migration"`

	CreatedAt time.Time `json:"reportedAt" gorm:"index:idx_potholes_feed,priority:3,sort:desc"`
	UpdatedAt time.Time `json:"lastUpdated"`
}

func (Pothole) TableName() string {
	return "potholes"
}

// AfterFind rebuilds the wire-format location from the stored columns.
func (p *Pothole) AfterFind(*gorm.DB) error {
	p.Location = GeoPoint{Type: "Point", Coordinates: [2]float64{p.Longitude, p.Latitude}}
	return nil
}

type PotholeImage struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID string `json:"-" gorm:"column:pothole_id;index"`
	URL       string `json:"url"`
	PublicID  string `json:"publicId" gorm:"column:public_id"`
}

func (PotholeImage) TableName() string {
	return "pothole_images"
}

type TaggedOfficial struct {
	ID            string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID     string       `json:"-" gorm:"column:pothole_id;index"`
	Role          OfficialRole `json:"role"`
	Name          string       `json:"name,omitempty"`
	TwitterHandle string       `json:"twitterHandle,omitempty" gorm:"column:twitter_handle"`
}

func (TaggedOfficial) TableName() string {
	return "tagged_officials"
}

type PotholeUpvote struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID string    `json:"potholeId" gorm:"column:pothole_id;uniqueIndex:idx_upvote_pair"`
	UserID    string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_upvote_pair"`
	CreatedAt time.Time `json:"createdAt"`
}

func (PotholeUpvote) TableName() string {
	return "pothole_upvotes"
}
