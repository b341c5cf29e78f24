package insight

import (
	"sort"
	"time"

	"mood-insight/internal/model"
)

// TimeBucket is the canonical three-way split of a day. It is the scheme that
// feeds prompts and signals; DayPart below is display-only.
type TimeBucket string

const (
	BucketEarly  TimeBucket = "early"  // before 11:00
	BucketMidday TimeBucket = "midday" // 11:00–16:59
	BucketLate   TimeBucket = "late"   // 17:00 onward
)

// DayPart is a finer-grained label used only for rendering timelines.
type DayPart string

const (
	PartLateNight DayPart = "late_night" // 00–04
	PartMorning   DayPart = "morning"    // 05–11
	PartMidday    DayPart = "midday"     // 12–16
	PartEvening   DayPart = "evening"    // 17–20
	PartNight     DayPart = "night"      // 21–23
)

// EnrichedCapture is a capture annotated with local-time labels.
type EnrichedCapture struct {
	model.Capture
	LocalTimeLabel string     `json:"local_time_label"`
	TimeBucket     TimeBucket `json:"time_bucket"`
	DayPart        DayPart    `json:"day_part"`
}

// DaySummary is one local calendar day of enriched captures, ascending by
// timestamp, with the day's distinct mood names in first-appearance order.
type DaySummary struct {
	DateLabel    string            `json:"date_label"`
	Captures     []EnrichedCapture `json:"captures"`
	PrimaryMoods []string          `json:"primary_moods"`
}

// Timeline is a week or month of day summaries, oldest first. All repeats the
// captures flattened across days, ascending.
type Timeline struct {
	Start time.Time
	End   time.Time
	Days  []DaySummary
	All   []EnrichedCapture
}

// Enrich annotates a single capture in the resolver's location.
func Enrich(r *Resolver, c model.Capture) EnrichedCapture {
	lt := c.CreatedAt.In(r.loc)
	return EnrichedCapture{
		Capture:        c,
		LocalTimeLabel: lt.Format("3:04 PM"),
		TimeBucket:     bucketFor(lt.Hour()),
		DayPart:        partFor(lt.Hour()),
	}
}

func bucketFor(hour int) TimeBucket {
	switch {
	case hour < 11:
		return BucketEarly
	case hour < 17:
		return BucketMidday
	default:
		return BucketLate
	}
}

func partFor(hour int) DayPart {
	switch {
	case hour <= 4:
		return PartLateNight
	case hour <= 11:
		return PartMorning
	case hour <= 16:
		return PartMidday
	case hour <= 20:
		return PartEvening
	default:
		return PartNight
	}
}

// ForDay returns the captures sharing date's local day key, filtered to those
// included in insights, sorted ascending and enriched. Day membership is key
// equality, not range math, so midnight edges cannot drift.
func ForDay(r *Resolver, date time.Time, captures []model.Capture) []EnrichedCapture {
	key := r.DayKey(date)
	var out []EnrichedCapture
	for _, c := range sortedIncluded(captures) {
		if r.DayKey(c.CreatedAt) == key {
			out = append(out, Enrich(r, c))
		}
	}
	return out
}

// DayOf builds the full day summary for date.
func DayOf(r *Resolver, date time.Time, captures []model.Capture) DaySummary {
	enriched := ForDay(r, date, captures)
	return DaySummary{
		DateLabel:    r.DayKey(date),
		Captures:     enriched,
		PrimaryMoods: primaryMoods(enriched),
	}
}

// ForWeek buckets captures into the Sunday–Saturday week containing ref.
// Every one of the seven days is present, oldest first, even when empty.
// Week membership is inclusive range containment, unlike ForDay's key test:
// week boundaries are instants, so they need instant comparison.
func ForWeek(r *Resolver, ref time.Time, captures []model.Capture) Timeline {
	start, end := r.WeekRange(ref)
	return timelineFor(r, start, end, 7, captures)
}

// ForMonth buckets captures into ref's calendar month, one summary per day.
func ForMonth(r *Resolver, ref time.Time, captures []model.Capture) Timeline {
	start, end := r.MonthRange(ref)
	days := end.In(r.loc).Day()
	return timelineFor(r, start, end, days, captures)
}

func timelineFor(r *Resolver, start, end time.Time, days int, captures []model.Capture) Timeline {
	inRange := make([]model.Capture, 0, len(captures))
	for _, c := range sortedIncluded(captures) {
		if !c.CreatedAt.Before(start) && !c.CreatedAt.After(end) {
			inRange = append(inRange, c)
		}
	}

	byKey := make(map[string][]EnrichedCapture)
	all := make([]EnrichedCapture, 0, len(inRange))
	for _, c := range inRange {
		e := Enrich(r, c)
		byKey[r.DayKey(c.CreatedAt)] = append(byKey[r.DayKey(c.CreatedAt)], e)
		all = append(all, e)
	}

	tl := Timeline{Start: start, End: end, Days: make([]DaySummary, 0, days), All: all}
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := r.DayKey(day)
		caps := byKey[key]
		tl.Days = append(tl.Days, DaySummary{
			DateLabel:    key,
			Captures:     caps,
			PrimaryMoods: primaryMoods(caps),
		})
	}
	return tl
}

// sortedIncluded copies, filters out opted-out captures and sorts ascending.
// Callers never get to depend on input order.
func sortedIncluded(captures []model.Capture) []model.Capture {
	out := make([]model.Capture, 0, len(captures))
	for _, c := range captures {
		if c.Included() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func primaryMoods(captures []EnrichedCapture) []string {
	seen := make(map[string]bool)
	var moods []string
	for _, c := range captures {
		name := c.MoodNameSnapshot
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		moods = append(moods, name)
	}
	return moods
}
