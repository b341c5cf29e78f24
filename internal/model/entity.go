package model

import (
	"time"

	"gorm.io/gorm"
)

type Member struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex" json:"username"`
	Password string `json:"-"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

// Capture is one timestamped mood event. MoodNameSnapshot is frozen at capture
// time and never re-resolved, so renaming a mood does not rewrite history.
type Capture struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	MemberID           int        `gorm:"index:idx_member_created" json:"member_id"`
	MoodID             string     `gorm:"size:36" json:"mood_id"`
	MoodNameSnapshot   string     `json:"mood_name_snapshot"`
	Note               string     `gorm:"type:text" json:"note,omitempty"`
	Tags               StringList `gorm:"type:text" json:"tags"`
	IncludeInInsights  *bool      `gorm:"default:true" json:"include_in_insights"`
	UsePhotoForInsight bool       `json:"use_photo_for_insight"`
	CreatedAt          time.Time  `gorm:"index:idx_member_created" json:"created_at"`
}

// Included reports whether the capture participates in insights. A nil flag
// means the default, true.
func (c Capture) Included() bool {
	return c.IncludeInInsights == nil || *c.IncludeInInsights
}

// Mood is a dictionary row. MemberID is empty for system-wide moods; user
// customs soft-delete so existing captures keep their provenance.
type Mood struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	MemberID  string         `gorm:"index;size:36" json:"member_id,omitempty"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Color     string         `gorm:"size:7" json:"color"`
	DeletedAt gorm.DeletedAt `json:"-"`
}

// InsightSnapshot is the one durable summary per (member, type, start_date).
// The composite unique index is what makes the period cache race-safe across
// devices; see service.SnapshotStore.
type InsightSnapshot struct {
	ID          int        `gorm:"primaryKey" json:"id"`
	MemberID    int        `gorm:"uniqueIndex:uk_member_period" json:"member_id"`
	Type        string     `gorm:"size:16;uniqueIndex:uk_member_period" json:"type"`
	StartDate   string     `gorm:"size:10;uniqueIndex:uk_member_period" json:"start_date"`
	EndDate     string     `gorm:"size:10" json:"end_date"`
	Content     string     `gorm:"type:text" json:"content"`
	MoodSummary JSONMap    `gorm:"type:text" json:"mood_summary"`
	CaptureIDs  StringList `gorm:"type:text" json:"capture_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const (
	SnapshotDaily     = "daily"
	SnapshotWeekly    = "weekly"
	SnapshotMonthly   = "monthly"
	SnapshotChallenge = "challenge"
)

func (Member) TableName() string          { return "members" }
func (Capture) TableName() string         { return "captures" }
func (Mood) TableName() string            { return "moods" }
func (InsightSnapshot) TableName() string { return "insight_snapshots" }
