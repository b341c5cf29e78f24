package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mood-insight/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotOwner = errors.New("mood does not belong to member")

// MoodService is the dictionary source: system-wide rows plus the member's
// custom rows, soft-deleted customs excluded.
type MoodService struct {
	db *gorm.DB
}

func NewMoodService(db *gorm.DB) *MoodService { return &MoodService{db: db} }

// Dictionary returns system moods plus memberID's live customs. memberID 0
// yields system moods only (unauthenticated callers see no customs).
func (s *MoodService) Dictionary(ctx context.Context, memberID int) ([]MoodEntry, error) {
	q := s.db.WithContext(ctx).Model(&model.Mood{})
	if memberID > 0 {
		q = q.Where("member_id = ? OR member_id = ?", "", strconv.Itoa(memberID))
	} else {
		q = q.Where("member_id = ?", "")
	}

	var rows []model.Mood
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}

	entries := make([]MoodEntry, 0, len(rows))
	for _, m := range rows {
		entries = append(entries, MoodEntry{ID: m.ID, Name: m.Name, Type: m.Type, Color: m.Color})
	}
	return entries, nil
}

func (s *MoodService) CreateCustom(ctx context.Context, memberID int, req model.MoodRequest) (*model.Mood, error) {
	m := model.Mood{
		ID:       uuid.NewString(),
		MemberID: strconv.Itoa(memberID),
		Name:     req.Name,
		Type:     req.Type,
		Color:    req.Color,
	}
	if m.Type == "" {
		m.Type = "custom"
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert mood: %w", err)
	}
	return &m, nil
}

// SoftDelete removes a custom mood for this member. System moods and other
// members' moods are untouchable; captures keep their frozen name snapshots.
func (s *MoodService) SoftDelete(ctx context.Context, memberID int, moodID string) error {
	var m model.Mood
	if err := s.db.WithContext(ctx).Where("id = ?", moodID).First(&m).Error; err != nil {
		return fmt.Errorf("find mood: %w", err)
	}
	if m.MemberID != strconv.Itoa(memberID) {
		return ErrNotOwner
	}
	if err := s.db.WithContext(ctx).Delete(&m).Error; err != nil {
		return fmt.Errorf("delete mood: %w", err)
	}
	return nil
}
