package insight

import (
	"math"
	"sort"
	"time"

	"mood-insight/internal/model"
)

// Shift describes how the last seven days compare to the window before them.
type Shift string

const (
	ShiftFocused Shift = "focused"
	ShiftIntense Shift = "intense"
	ShiftStable  Shift = "stable"
	ShiftLower   Shift = "lower"
)

// Moods whose ids carry high or low energy. Everything else is medium.
var (
	highEnergyMoods = map[string]bool{
		"happy": true, "excited": true, "energized": true,
		"joyful": true, "angry": true, "anxious": true,
	}
	lowEnergyMoods = map[string]bool{
		"sad": true, "tired": true, "drained": true,
		"calm": true, "peaceful": true, "melancholy": true,
	}
)

// EnergyMix keeps raw counts for computation; the Pct fields are rounded for
// display only.
type EnergyMix struct {
	HighCount   int `json:"high_count"`
	MediumCount int `json:"medium_count"`
	LowCount    int `json:"low_count"`
	HighPct     int `json:"high_pct"`
	MediumPct   int `json:"medium_pct"`
	LowPct      int `json:"low_pct"`
}

// PeriodSignals are the deterministic statistics for one capture window. They
// have no identity of their own: recomputed on demand, embedded in snapshot
// metadata, never cached separately.
type PeriodSignals struct {
	MoodCounts     map[string]int    `json:"mood_counts"`
	MoodNames      map[string]string `json:"mood_names"`
	Dominant       string            `json:"dominant_mood"`
	RunnerUp       string            `json:"runner_up_mood,omitempty"`
	Volatility     float64           `json:"volatility_score"`
	ActiveDays     int               `json:"active_days"`
	TotalCaptures  int               `json:"total_captures"`
	Last7DaysShift Shift             `json:"last_7_days_shift"`
	Energy         EnergyMix         `json:"energy"`
}

// ComputeSignals derives the signal set for captures as of a fixed instant.
// asOf must be passed explicitly so a snapshot's signals stay reproducible.
// Captures with IncludeInInsights=false are assumed already filtered out.
func ComputeSignals(r *Resolver, captures []model.Capture, asOf time.Time) PeriodSignals {
	sorted := make([]model.Capture, len(captures))
	copy(sorted, captures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	counts := make(map[string]int)
	names := make(map[string]string)
	var order []string // mood ids by first appearance
	for _, c := range sorted {
		id := moodID(c)
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
		if c.MoodNameSnapshot != "" {
			names[id] = c.MoodNameSnapshot // latest snapshot wins
		}
	}

	dominant, runnerUp := rank(counts, order)

	sig := PeriodSignals{
		MoodCounts:     counts,
		MoodNames:      names,
		Dominant:       dominant,
		RunnerUp:       runnerUp,
		TotalCaptures:  len(sorted),
		Volatility:     volatility(r, sorted),
		Last7DaysShift: momentum(sorted, dominant, asOf),
		Energy:         energyMix(sorted),
	}

	days := make(map[string]bool)
	for _, c := range sorted {
		days[r.DayKey(c.CreatedAt)] = true
	}
	sig.ActiveDays = len(days)
	return sig
}

func moodID(c model.Capture) string {
	if c.MoodID == "" {
		return "neutral"
	}
	return c.MoodID
}

// rank picks dominant and runner-up mood ids by count, descending. Ties go to
// the mood that appeared first chronologically, so results are reproducible.
func rank(counts map[string]int, order []string) (string, string) {
	var dominant, runnerUp string
	for _, id := range order {
		switch {
		case dominant == "" || counts[id] > counts[dominant]:
			runnerUp = dominant
			dominant = id
		case runnerUp == "" || counts[id] > counts[runnerUp]:
			runnerUp = id
		}
	}
	return dominant, runnerUp
}

// volatility is the fraction of day-to-day transitions where the per-day
// dominant mood changed. The per-day dominant is a >= fold over the day's
// moods in first-appearance order, so an exact count tie goes to the mood
// that first appeared later in the day. That tie-break is deliberate and
// pinned by tests; do not "fix" it to alphabetical.
func volatility(r *Resolver, sorted []model.Capture) float64 {
	type day struct {
		counts map[string]int
		order  []string
	}
	byKey := make(map[string]*day)
	var keys []string
	for _, c := range sorted {
		key := r.DayKey(c.CreatedAt)
		d, ok := byKey[key]
		if !ok {
			d = &day{counts: make(map[string]int)}
			byKey[key] = d
			keys = append(keys, key)
		}
		id := moodID(c)
		if d.counts[id] == 0 {
			d.order = append(d.order, id)
		}
		d.counts[id]++
	}
	sort.Strings(keys)

	var dominants []string
	for _, key := range keys {
		d := byKey[key]
		dom := d.order[0]
		for _, id := range d.order[1:] {
			if d.counts[id] >= d.counts[dom] {
				dom = id
			}
		}
		dominants = append(dominants, dom)
	}

	transitions := 0
	for i := 1; i < len(dominants); i++ {
		if dominants[i] != dominants[i-1] {
			transitions++
		}
	}
	return float64(transitions) / math.Max(1, float64(len(dominants)-1))
}

func energyMix(captures []model.Capture) EnergyMix {
	var mix EnergyMix
	for _, c := range captures {
		switch id := moodID(c); {
		case highEnergyMoods[id]:
			mix.HighCount++
		case lowEnergyMoods[id]:
			mix.LowCount++
		default:
			mix.MediumCount++
		}
	}
	if total := len(captures); total > 0 {
		mix.HighPct = int(math.Round(float64(mix.HighCount) / float64(total) * 100))
		mix.MediumPct = int(math.Round(float64(mix.MediumCount) / float64(total) * 100))
		mix.LowPct = int(math.Round(float64(mix.LowCount) / float64(total) * 100))
	}
	return mix
}

// momentum compares high-energy ratios on either side of asOf minus seven
// days. Either half empty means there is nothing to compare against.
func momentum(sorted []model.Capture, dominant string, asOf time.Time) Shift {
	cutoff := asOf.AddDate(0, 0, -7)
	var early, recent []model.Capture
	for _, c := range sorted {
		if c.CreatedAt.Before(cutoff) {
			early = append(early, c)
		} else {
			recent = append(recent, c)
		}
	}
	if len(early) == 0 || len(recent) == 0 {
		return ShiftStable
	}

	diff := highRatio(recent) - highRatio(early)
	switch {
	case diff > 0.20:
		return ShiftIntense
	case diff < -0.20:
		return ShiftLower
	}

	for _, c := range recent {
		if moodID(c) != dominant {
			return ShiftStable
		}
	}
	return ShiftFocused
}

func highRatio(captures []model.Capture) float64 {
	if len(captures) == 0 {
		return 0
	}
	high := 0
	for _, c := range captures {
		if highEnergyMoods[moodID(c)] {
			high++
		}
	}
	return float64(high) / float64(len(captures))
}
