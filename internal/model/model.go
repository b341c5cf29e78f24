package model

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Role   string `json:"role"`
}

type CaptureRequest struct {
	MoodID             string   `json:"mood_id" binding:"required"`
	Note               string   `json:"note"`
	Tags               []string `json:"tags"`
	IncludeInInsights  *bool    `json:"include_in_insights"`
	UsePhotoForInsight bool     `json:"use_photo_for_insight"`
	CreatedAt          string   `json:"created_at"` // RFC 3339; empty means now
}

type MoodRequest struct {
	Name  string `json:"name" binding:"required"`
	Type  string `json:"type"`
	Color string `json:"color" binding:"required"`
}

// InsightResponse wraps the ensure operation's three normal outcomes: a
// snapshot, "not ready yet," or "nothing to summarize."
type InsightResponse struct {
	Status   string           `json:"status"` // ready | not_ready | empty
	Snapshot *InsightSnapshot `json:"snapshot,omitempty"`
}
