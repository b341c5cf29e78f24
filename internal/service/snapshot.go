package service

import (
	"context"
	"errors"
	"fmt"

	"mood-insight/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoSnapshot = errors.New("no snapshot for period")

// SnapshotStore enforces the at-most-one-snapshot-per-period invariant. The
// invariant lives in the database, as a composite unique index on
// (member_id, type, start_date), because orchestrators for the same member
// may race from different devices; an in-process lock would not help.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore { return &SnapshotStore{db: db} }

// Fetch is a point lookup on the uniqueness triple.
func (s *SnapshotStore) Fetch(ctx context.Context, memberID int, typ, startDate string) (*model.InsightSnapshot, error) {
	var snap model.InsightSnapshot
	err := s.db.WithContext(ctx).
		Where("member_id = ? AND type = ? AND start_date = ?", memberID, typ, startDate).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return &snap, nil
}

// Upsert is a single conditional write keyed on the unique triple. Concurrent
// callers generating the same period converge on one row, last writer's
// content winning. The orchestrator never needs to retry: the write is
// idempotent per period.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *model.InsightSnapshot) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}, {Name: "type"}, {Name: "start_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"end_date", "content", "mood_summary", "capture_ids", "updated_at",
		}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
