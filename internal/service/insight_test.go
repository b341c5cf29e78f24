package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mood-insight/internal/config"
	"mood-insight/internal/insight"
	"mood-insight/internal/model"

	"gorm.io/gorm"
)

type stubGen struct {
	calls int32
	out   string
	err   error
}

func (g *stubGen) Complete(ctx context.Context, system, user string) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	return g.out, g.err
}

func newInsightService(t *testing.T, db *gorm.DB, gen TextGenerator) *InsightService {
	t.Helper()
	return NewInsightService(
		NewCaptureService(db),
		NewSnapshotStore(db),
		gen,
		insight.NewResolver(time.UTC),
		config.InsightConfig{MonthlyMinDay: 7, MonthlyMinActive: 7, GenerateTimeoutSec: 5},
	)
}

func seedCapture(t *testing.T, db *gorm.DB, id string, memberID int, moodID, name string, at time.Time) {
	t.Helper()
	c := model.Capture{
		ID:               id,
		MemberID:         memberID,
		MoodID:           moodID,
		MoodNameSnapshot: name,
		CreatedAt:        at,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed capture: %v", err)
	}
}

func TestEnsureFastLoadSkipsGeneration(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{out: "A soft and steady day with a bright patch mid-morning."}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	ref := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)
	seedCapture(t, db, "c1", 1, "happy", "Happy", ref.Add(-2*time.Hour))
	seedCapture(t, db, "c2", 1, "tired", "Tired", ref.Add(-time.Hour))

	first, err := svc.Ensure(ctx, 1, model.SnapshotDaily, ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&gen.calls) != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
	if first.StartDate != "2025-02-04" || first.Content == "" {
		t.Fatalf("snapshot = %+v", first)
	}
	if len(first.CaptureIDs) != 2 {
		t.Fatalf("capture ids = %v, want both captures recorded", first.CaptureIDs)
	}

	// second ensure is the fast-load path: same content, no new generation
	second, err := svc.Ensure(ctx, 1, model.SnapshotDaily, ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&gen.calls) != 1 {
		t.Fatalf("fast load re-invoked the generator (%d calls)", gen.calls)
	}
	if second.Content != first.Content {
		t.Fatalf("fast load returned different content: %q vs %q", second.Content, first.Content)
	}
}

func TestEnsureForce(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{out: "First pass over a bright morning."}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	ref := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)
	seedCapture(t, db, "c1", 1, "happy", "Happy", ref.Add(-2*time.Hour))

	first, err := svc.Ensure(ctx, 1, model.SnapshotDaily, ref, false)
	if err != nil {
		t.Fatal(err)
	}

	gen.out = "Second pass, a fuller picture now."
	forced, err := svc.Ensure(ctx, 1, model.SnapshotDaily, ref, true)
	if err != nil {
		t.Fatal(err)
	}
	if forced.Content == first.Content {
		t.Fatal("force must regenerate content")
	}

	var count int64
	db.Model(&model.InsightSnapshot{}).Count(&count)
	if count != 1 {
		t.Fatalf("force produced %d rows, want the single period row", count)
	}
}

func TestEnsureFallsBackOnInvalidOutput(t *testing.T) {
	db := newTestDB(t)
	// weekly requires JSON; prose is invalid there
	gen := &stubGen{out: "not json at all"}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	ref := time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC)
	seedCapture(t, db, "c1", 1, "happy", "Happy", time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC))
	seedCapture(t, db, "c2", 1, "calm", "Calm", time.Date(2025, 2, 4, 9, 0, 0, 0, time.UTC))

	snap, err := svc.Ensure(ctx, 1, model.SnapshotWeekly, ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MoodSummary["source"] != "fallback" {
		t.Fatalf("source = %v, want fallback", snap.MoodSummary["source"])
	}
	if snap.Content == "" {
		t.Fatal("fallback must still produce content")
	}
}

func TestEnsureFallsBackOnGeneratorError(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{err: errors.New("timeout")}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	ref := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)
	seedCapture(t, db, "c1", 1, "happy", "Happy", ref.Add(-time.Hour))

	snap, err := svc.Ensure(ctx, 1, model.SnapshotDaily, ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MoodSummary["source"] != "fallback" {
		t.Fatal("a failed generation call must degrade to fallback, not error out")
	}
}

func TestEnsureNoCaptures(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{out: "irrelevant"}
	svc := newInsightService(t, db, gen)

	ref := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)
	_, err := svc.Ensure(context.Background(), 1, model.SnapshotDaily, ref, false)
	if !errors.Is(err, ErrNoCaptures) {
		t.Fatalf("err = %v, want ErrNoCaptures", err)
	}

	var count int64
	db.Model(&model.InsightSnapshot{}).Count(&count)
	if count != 0 {
		t.Fatal("nothing-to-summarize must not write a snapshot")
	}
}

func TestEnsureMonthlyEligibility(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{out: `{"reading": "A settled month.", "mood_flow": [{"mood": "quiet contentment", "percentage": 100, "color": "#7CB9E8"}]}`}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	// plenty of data but the month is only 5 days old
	for d := 1; d <= 5; d++ {
		seedCapture(t, db, string(rune('a'+d)), 1, "happy", "Happy",
			time.Date(2025, 2, d, 10, 0, 0, 0, time.UTC))
	}
	early := time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC)
	if _, err := svc.Ensure(ctx, 1, model.SnapshotMonthly, early, false); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible before day 7", err)
	}

	// day 20 but only 5 active days
	late := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	if _, err := svc.Ensure(ctx, 1, model.SnapshotMonthly, late, false); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible under 7 active days", err)
	}

	// force bypasses both gates
	snap, err := svc.Ensure(ctx, 1, model.SnapshotMonthly, early, true)
	if err != nil {
		t.Fatal(err)
	}
	if snap.StartDate != "2025-02-01" {
		t.Fatalf("start = %s, want 2025-02-01", snap.StartDate)
	}

	// with 7 active days the normal path goes through
	for d := 1; d <= 7; d++ {
		seedCapture(t, db, string(rune('A'+d)), 3, "happy", "Happy",
			time.Date(2025, 2, d, 10, 0, 0, 0, time.UTC))
	}
	snap, err = svc.Ensure(ctx, 3, model.SnapshotMonthly, time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Type != model.SnapshotMonthly {
		t.Fatalf("snapshot type = %s", snap.Type)
	}
}

func TestEnsureUnknownPeriod(t *testing.T) {
	svc := newInsightService(t, newTestDB(t), &stubGen{})
	_, err := svc.Ensure(context.Background(), 1, "hourly", time.Now(), false)
	if !errors.Is(err, ErrBadPeriod) {
		t.Fatalf("err = %v, want ErrBadPeriod", err)
	}
}

func TestEnsureUsesGeneratedReading(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{out: "```json\n" + `{
		"reading": "The week held a soft, even rhythm.",
		"mood_flow": [
			{"mood": "quiet contentment", "percentage": 60, "color": "#7CB9E8"},
			{"mood": "restless energy", "percentage": 40, "color": "#E57373"}
		]
	}` + "\n```"}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	seedCapture(t, db, "c1", 1, "happy", "Happy", time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC))
	seedCapture(t, db, "c2", 1, "calm", "Calm", time.Date(2025, 2, 4, 9, 0, 0, 0, time.UTC))

	snap, err := svc.Ensure(ctx, 1, model.SnapshotWeekly, time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MoodSummary["source"] != "generated" {
		t.Fatalf("source = %v, want generated", snap.MoodSummary["source"])
	}
	if snap.Content != "The week held a soft, even rhythm." {
		t.Fatalf("content = %q", snap.Content)
	}
	if snap.StartDate != "2025-02-02" || snap.EndDate != "2025-02-08" {
		t.Fatalf("period = %s..%s, want the Sunday week", snap.StartDate, snap.EndDate)
	}
}

// Generated mood-flow phrases echoing raw mood vocabulary violate content
// policy: the orchestrator discards the payload and falls back.
func TestEnsureRejectsLeakedLabelsInFlow(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGen{out: `{
		"reading": "A fine week.",
		"mood_flow": [{"mood": "happy times", "percentage": 100, "color": "#7CB9E8"}]
	}`}
	svc := newInsightService(t, db, gen)
	ctx := context.Background()

	seedCapture(t, db, "c1", 1, "happy", "Happy", time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC))

	snap, err := svc.Ensure(ctx, 1, model.SnapshotWeekly, time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MoodSummary["source"] != "fallback" {
		t.Fatalf("source = %v, want fallback after label leakage", snap.MoodSummary["source"])
	}
}
