package service

import (
	"context"
	"fmt"
	"time"

	"mood-insight/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaptureService owns the capture table. The insight engine only ever reads
// from it; writes come from the capture endpoints.
type CaptureService struct {
	db *gorm.DB
}

func NewCaptureService(db *gorm.DB) *CaptureService { return &CaptureService{db: db} }

func (s *CaptureService) Create(ctx context.Context, memberID int, req model.CaptureRequest, moodName string) (*model.Capture, error) {
	createdAt := time.Now()
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		createdAt = t
	}

	c := model.Capture{
		ID:                 uuid.NewString(),
		MemberID:           memberID,
		MoodID:             req.MoodID,
		MoodNameSnapshot:   moodName,
		Note:               req.Note,
		Tags:               req.Tags,
		IncludeInInsights:  req.IncludeInInsights,
		UsePhotoForInsight: req.UsePhotoForInsight,
		CreatedAt:          createdAt,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("insert capture: %w", err)
	}
	return &c, nil
}

// ListRange returns the member's captures with start <= created_at <= end,
// oldest first.
func (s *CaptureService) ListRange(ctx context.Context, memberID int, start, end time.Time) ([]model.Capture, error) {
	var out []model.Capture
	err := s.db.WithContext(ctx).
		Where("member_id = ? AND created_at >= ? AND created_at <= ?", memberID, start, end).
		Order("created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	return out, nil
}
