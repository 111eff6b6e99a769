package models

import "time"

// SpamReport is a user flagging a pothole record as bogus. Spam reports are
// idempotent per (pothole, user) and cannot be retracted by the reporter.
type SpamReport struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID string    `json:"potholeId" gorm:"column:pothole_id;uniqueIndex:idx_spam_pair"`
	UserID    string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_spam_pair"`
	Reporter  *User     `json:"reporter,omitempty" gorm:"foreignKey:UserID"`
	Note      string    `json:"note,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty" gorm:"column:image_url"`
	PublicID  string    `json:"publicId,omitempty" gorm:"column:public_id"`
	CreatedAt time.Time `json:"reportedAt"`
}

func (SpamReport) TableName() string {
	return "spam_reports"
}
