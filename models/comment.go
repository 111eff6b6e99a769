package models

import "time"

const MaxCommentLength = 200

type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID string    `json:"potholeId" gorm:"column:pothole_id;index"`
	UserID    string    `json:"userId" gorm:"column:user_id"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:UserID"`
	Content   string    `json:"content" binding:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "comments"
}

type CommentInput struct {
	Content string `json:"content" binding:"required"`
}
