package models

import (
	"time"
)

type Role string

const (
	AdminRole Role = "ADMIN"
	UserRole  Role = "USER"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email     string    `json:"email" gorm:"uniqueIndex" binding:"required,email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl" gorm:"column:avatar_url"`
	Role      Role      `json:"role" gorm:"default:USER"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// SignInInput is the profile handed over by the identity provider once it has
// verified the user. Only the email is treated as a stable identifier.
type SignInInput struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type RefKind string

const (
	ReportedRef  RefKind = "reported"
	CommentedRef RefKind = "commented"
)

// UserPotholeRef is the denormalized back-reference index on User. It is only
// ever written as a side effect of pothole-side operations. Vote membership is
// not mirrored here: the pothole-side vote tables are the source of truth.
type UserPotholeRef struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_user_pothole_kind"`
	PotholeID string    `json:"potholeId" gorm:"column:pothole_id;uniqueIndex:idx_user_pothole_kind"`
	Kind      RefKind   `json:"kind" gorm:"uniqueIndex:idx_user_pothole_kind"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserPotholeRef) TableName() string {
	return "user_pothole_refs"
}
