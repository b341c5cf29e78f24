package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mood-insight/internal/config"
	"mood-insight/internal/insight"
	"mood-insight/internal/logger"
	"mood-insight/internal/model"
)

var (
	// ErrNotEligible is a normal "no insight yet" outcome, not a failure.
	ErrNotEligible = errors.New("period not eligible for insight yet")
	// ErrNoCaptures means the period has nothing to summarize; nothing is written.
	ErrNoCaptures = errors.New("no qualifying captures in period")
	ErrBadPeriod  = errors.New("unknown period type")
)

// TextGenerator is the generation collaborator seam; tests stub it.
type TextGenerator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// InsightService sequences the end-to-end "ensure insight for period X"
// operation: fast-load, eligibility, aggregate, generate, validate, fallback,
// persist.
type InsightService struct {
	captures  *CaptureService
	snapshots *SnapshotStore
	gen       TextGenerator
	resolver  *insight.Resolver
	timeout   time.Duration
	minDay    int
	minActive int
	now       func() time.Time
}

func NewInsightService(captures *CaptureService, snapshots *SnapshotStore, gen TextGenerator, resolver *insight.Resolver, cfg config.InsightConfig) *InsightService {
	timeout := time.Duration(cfg.GenerateTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InsightService{
		captures:  captures,
		snapshots: snapshots,
		gen:       gen,
		resolver:  resolver,
		timeout:   timeout,
		minDay:    cfg.MonthlyMinDay,
		minActive: cfg.MonthlyMinActive,
		now:       time.Now,
	}
}

// Ensure returns the snapshot for the period containing ref, generating and
// persisting one if needed. An existing snapshot, however old, is
// authoritative unless force is set; past periods stay effectively immutable.
func (s *InsightService) Ensure(ctx context.Context, memberID int, typ string, ref time.Time, force bool) (*model.InsightSnapshot, error) {
	start, end, err := s.periodRange(typ, ref)
	if err != nil {
		return nil, err
	}
	startDate := s.resolver.DayKey(start)

	snap, err := s.snapshots.Fetch(ctx, memberID, typ, startDate)
	if err == nil && !force {
		return snap, nil
	}
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}

	if typ == model.SnapshotMonthly && !force && ref.In(s.resolver.Location()).Day() < s.minDay {
		return nil, ErrNotEligible
	}

	raw, err := s.captures.ListRange(ctx, memberID, start, end)
	if err != nil {
		return nil, err
	}

	var days []insight.DaySummary
	var enriched []insight.EnrichedCapture
	switch typ {
	case model.SnapshotDaily:
		day := insight.DayOf(s.resolver, ref, raw)
		days = []insight.DaySummary{day}
		enriched = day.Captures
	case model.SnapshotWeekly:
		tl := insight.ForWeek(s.resolver, ref, raw)
		days, enriched = tl.Days, tl.All
	case model.SnapshotMonthly:
		tl := insight.ForMonth(s.resolver, ref, raw)
		days, enriched = tl.Days, tl.All
	}
	if len(enriched) == 0 {
		return nil, ErrNoCaptures
	}

	included := make([]model.Capture, len(enriched))
	captureIDs := make(model.StringList, len(enriched))
	for i, e := range enriched {
		included[i] = e.Capture
		captureIDs[i] = e.ID
	}
	signals := insight.ComputeSignals(s.resolver, included, ref)

	if typ == model.SnapshotMonthly && !force && signals.ActiveDays < s.minActive {
		return nil, ErrNotEligible
	}

	content, flow, source := s.generate(ctx, typ, days, enriched, signals)

	newSnap := &model.InsightSnapshot{
		MemberID:  memberID,
		Type:      typ,
		StartDate: startDate,
		EndDate:   s.resolver.DayKey(end),
		Content:   content,
		MoodSummary: model.JSONMap{
			"mood_flow": flow,
			"signals":   signals,
			"source":    source,
		},
		CaptureIDs: captureIDs,
	}
	if err := s.snapshots.Upsert(ctx, newSnap); err != nil {
		return nil, err
	}
	logger.Info("insight persisted", "member_id", memberID, "type", typ, "start", startDate, "source", source, "captures", len(captureIDs))

	// read back the canonical row: on a forced overwrite the conditional
	// write updates the existing row rather than inserting
	stored, err := s.snapshots.Fetch(ctx, memberID, typ, startDate)
	if err != nil {
		return newSnap, nil
	}
	return stored, nil
}

func (s *InsightService) periodRange(typ string, ref time.Time) (time.Time, time.Time, error) {
	switch typ {
	case model.SnapshotDaily:
		start, end := s.resolver.DayRange(ref)
		return start, end, nil
	case model.SnapshotWeekly:
		start, end := s.resolver.WeekRange(ref)
		return start, end, nil
	case model.SnapshotMonthly:
		start, end := s.resolver.MonthRange(ref)
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadPeriod, typ)
	}
}

// generate runs the collaborator under a timeout and validates whatever comes
// back. Any transport error or schema violation degrades to the deterministic
// fallback; the period is always written, the caller never left hanging.
func (s *InsightService) generate(ctx context.Context, typ string, days []insight.DaySummary, enriched []insight.EnrichedCapture, signals insight.PeriodSignals) (string, []insight.MoodFlowSegment, string) {
	allowProse := typ == model.SnapshotDaily

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	system, user := buildPrompt(typ, days, signals)
	raw, err := s.gen.Complete(gctx, system, user)
	if err != nil {
		logger.Warn("generation call failed, falling back", "type", typ, "err", err)
		raw = ""
	}

	res := insight.ValidateResponse(raw, allowProse)
	if res.Valid {
		content, flow := payloadContent(res.Payload)
		// leaked raw vocabulary inside segment phrases violates the content
		// policy outright; leakage in prose is logged and tolerated
		if leaks := flowLeaks(flow); len(leaks) > 0 {
			logger.Warn("generated mood flow leaks raw labels, falling back", "type", typ, "leaks", leaks)
		} else {
			if len(res.LabelLeaks) > 0 {
				logger.Warn("generated prose mentions raw mood labels", "type", typ, "leaks", res.LabelLeaks)
			}
			return content, flow, "generated"
		}
	} else {
		logger.Warn("generation output invalid, falling back", "type", typ, "errors", res.Errors)
	}

	items := make([]insight.FallbackItem, 0, len(enriched))
	for _, e := range enriched {
		name := e.MoodNameSnapshot
		if name == "" {
			name = e.MoodID
		}
		items = append(items, insight.FallbackItem{MoodName: name, Note: e.Note, At: e.CreatedAt, Tags: e.Tags})
	}
	flow := insight.BuildMoodFlow(items)
	return flowText(flow), flow, "fallback"
}

func payloadContent(p insight.Payload) (string, []insight.MoodFlowSegment) {
	switch p.Kind {
	case insight.KindProse:
		return p.Prose, nil
	case insight.KindReading:
		if strings.TrimSpace(p.Reading) != "" {
			return p.Reading, p.Segments
		}
		return flowText(p.Segments), p.Segments
	default:
		return flowText(p.Segments), p.Segments
	}
}

func flowLeaks(flow []insight.MoodFlowSegment) []string {
	var leaks []string
	for _, seg := range flow {
		leaks = append(leaks, insight.ScanLabelLeaks(seg.Mood)...)
	}
	return leaks
}

// flowText renders a mood flow as one readable sentence, used when the
// payload carries segments but no prose and for every fallback snapshot.
func flowText(flow []insight.MoodFlowSegment) string {
	if len(flow) == 0 {
		return "A quiet stretch with nothing recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Mostly %s (%.0f%%)", flow[0].Mood, flow[0].Percentage)
	for i, seg := range flow[1:] {
		if i == len(flow)-2 {
			fmt.Fprintf(&b, " and %s (%.0f%%)", seg.Mood, seg.Percentage)
		} else {
			fmt.Fprintf(&b, ", %s (%.0f%%)", seg.Mood, seg.Percentage)
		}
	}
	b.WriteString(".")
	return b.String()
}

func buildPrompt(typ string, days []insight.DaySummary, signals insight.PeriodSignals) (string, string) {
	var system string
	if typ == model.SnapshotDaily {
		system = `You write short, warm reflections on a person's day from their mood journal.
Write 2-3 plain-text sentences. Describe feelings with fresh phrases; never repeat the journal's own mood words back.`
	} else {
		system = `You summarize a mood journal period as JSON:
{"reading": "2-3 sentence reflection", "mood_flow": [{"mood": "descriptive phrase", "percentage": 40, "color": "#RRGGBB", "context": "optional"}]}
Percentages must sum to 100. Mood phrases must be descriptive (two or three words) and must never repeat the journal's own mood words. Return only JSON.`
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s\n", typ)
	fmt.Fprintf(&b, "Total captures: %d across %d active days\n", signals.TotalCaptures, signals.ActiveDays)
	if name := signals.MoodNames[signals.Dominant]; name != "" {
		fmt.Fprintf(&b, "Most frequent feeling: %s\n", name)
	}
	if name := signals.MoodNames[signals.RunnerUp]; name != "" {
		fmt.Fprintf(&b, "Second: %s\n", name)
	}
	fmt.Fprintf(&b, "Volatility: %.2f, last-7-days shift: %s\n", signals.Volatility, signals.Last7DaysShift)
	fmt.Fprintf(&b, "Energy split: %d%% high / %d%% medium / %d%% low\n\n", signals.Energy.HighPct, signals.Energy.MediumPct, signals.Energy.LowPct)

	b.WriteString("Timeline:\n")
	for _, day := range days {
		if len(day.Captures) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[%s]", day.DateLabel)
		for _, c := range day.Captures {
			fmt.Fprintf(&b, " %s %s (%s)", c.LocalTimeLabel, c.MoodNameSnapshot, c.TimeBucket)
			if c.Note != "" {
				fmt.Fprintf(&b, ": %s", c.Note)
			}
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	return system, b.String()
}
