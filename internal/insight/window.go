// Package insight is the pure core of the snapshot engine: period windows,
// capture aggregation, statistical signals, response validation and fallback
// mood-flow synthesis. Nothing here touches the database or the network.
package insight

import "time"

// Resolver computes period boundaries in one fixed location. The composition
// root constructs it once and hands it to everything that buckets captures by
// day, so two call sites can never disagree about where midnight is.
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

func (r *Resolver) Location() *time.Location { return r.loc }

// DayKey formats t as YYYY-MM-DD in the resolver's location. Two instants map
// to the same key iff they fall in the same local calendar day; this, not
// UTC-day comparison, is the grouping contract everywhere.
func (r *Resolver) DayKey(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02")
}

// DayRange returns the first and last instant of t's local calendar day.
func (r *Resolver) DayRange(t time.Time) (time.Time, time.Time) {
	lt := t.In(r.loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, r.loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// WeekRange returns the Sunday-through-Saturday week containing t: the most
// recent Sunday 00:00 local at or before t, through the following Saturday's
// last instant.
func (r *Resolver) WeekRange(t time.Time) (time.Time, time.Time) {
	lt := t.In(r.loc)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, r.loc)
	start := day.AddDate(0, 0, -int(lt.Weekday()))
	return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// MonthRange returns the first and last instant of t's calendar month.
func (r *Resolver) MonthRange(t time.Time) (time.Time, time.Time) {
	lt := t.In(r.loc)
	start := time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, r.loc)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
