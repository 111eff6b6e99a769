package models

import "time"

// RepairClaim is a user-submitted assertion that a pothole has been fixed.
// A pothole carries at most one claim; resubmission replaces it wholesale.
type RepairClaim struct {
	ID          string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID   string       `json:"potholeId" gorm:"column:pothole_id;uniqueIndex"`
	SubmittedBy string       `json:"submittedBy" gorm:"column:submitted_by"`
	Submitter   *User        `json:"submitter,omitempty" gorm:"foreignKey:SubmittedBy"`
	ImageURL    string       `json:"imageUrl" gorm:"column:image_url"`
	PublicID    string       `json:"publicId" gorm:"column:public_id"`
	Note        string       `json:"note,omitempty"`
	Confirmed   bool         `json:"confirmed" gorm:"default:false"`
	Votes       []RepairVote `json:"votes" gorm:"foreignKey:PotholeID;references:PotholeID"`
	SubmittedAt time.Time    `json:"submittedAt" gorm:"column:submitted_at"`
}

func (RepairClaim) TableName() string {
	return "repair_claims"
}

type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

// RepairVote is a single up- or downvote on a repair claim. The unique
// (pothole, user) pair guarantees a user is never on both sides at once.
type RepairVote struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PotholeID string    `json:"potholeId" gorm:"column:pothole_id;uniqueIndex:idx_repair_vote_pair"`
	UserID    string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_repair_vote_pair"`
	Voter     *User     `json:"voter,omitempty" gorm:"foreignKey:UserID"`
	Kind      VoteKind  `json:"kind"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"votedAt"`
}

func (RepairVote) TableName() string {
	return "repair_votes"
}

type RepairVoteInput struct {
	Note string `json:"note"`
}
