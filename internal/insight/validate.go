package insight

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PayloadKind discriminates the shapes the generation collaborator may return.
// The tag is decided once at decode time; nothing downstream re-inspects JSON.
type PayloadKind int

const (
	KindProse PayloadKind = iota
	KindSegments
	KindReading
)

// MoodFlowSegment is one percentage-weighted descriptive slice of a period.
// Mood is a descriptive phrase, never a raw mood identifier.
type MoodFlowSegment struct {
	Mood       string  `json:"mood"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
	Context    string  `json:"context,omitempty"`
}

// Payload is the parsed form of a generation response.
type Payload struct {
	Kind     PayloadKind
	Prose    string
	Reading  string
	Segments []MoodFlowSegment
}

// ValidationResult is always returned, never panicked out of. LabelLeaks is
// advisory: callers decide whether leaked raw mood vocabulary is fatal.
type ValidationResult struct {
	Valid      bool
	Errors     []string
	Payload    Payload
	LabelLeaks []string
}

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Raw mood vocabulary that generated text must never echo verbatim.
var bannedLabelRe = regexp.MustCompile(`(?i)\b(happy|sad|angry|anxious|calm|excited|tired|neutral|joyful|drained|peaceful|melancholy|energized)\b`)

// StripFence removes one leading/trailing markdown code-fence pair, including
// a "json" language tag on the opening line. Interior content is untouched;
// unfenced input passes through unchanged.
func StripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		if tag := strings.TrimSpace(body[:i]); tag == "" || tag == "json" {
			body = body[i+1:]
		}
	}
	return strings.TrimSpace(body)
}

// ScanLabelLeaks returns the distinct banned raw mood words found in s.
func ScanLabelLeaks(s string) []string {
	seen := make(map[string]bool)
	var leaks []string
	for _, m := range bannedLabelRe.FindAllString(s, -1) {
		w := strings.ToLower(m)
		if !seen[w] {
			seen[w] = true
			leaks = append(leaks, w)
		}
	}
	return leaks
}

// ValidateResponse defensively parses raw collaborator output. allowProse
// should be true for period types whose summaries may be plain text; for
// those, a JSON parse failure is a prose payload, not an error. All schema
// violations are collected so one bad segment cannot hide another.
func ValidateResponse(raw string, allowProse bool) ValidationResult {
	text := strings.TrimSpace(StripFence(raw))
	if text == "" {
		return ValidationResult{Errors: []string{"empty response"}}
	}

	var probe json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		if allowProse {
			return ValidationResult{
				Valid:      true,
				Payload:    Payload{Kind: KindProse, Prose: text},
				LabelLeaks: ScanLabelLeaks(text),
			}
		}
		return ValidationResult{Errors: []string{fmt.Sprintf("response is not valid JSON: %v", err)}}
	}

	switch {
	case isMoodFlowSegments(probe):
		segs, errs := decodeMoodFlow(probe)
		res := ValidationResult{
			Valid:   len(errs) == 0,
			Errors:  errs,
			Payload: Payload{Kind: KindSegments, Segments: segs},
		}
		for _, s := range segs {
			res.LabelLeaks = append(res.LabelLeaks, ScanLabelLeaks(s.Mood)...)
		}
		return res

	case isMoodFlowReading(probe):
		var reading struct {
			Reading  string          `json:"reading"`
			MoodFlow json.RawMessage `json:"mood_flow"`
		}
		if err := json.Unmarshal(probe, &reading); err != nil {
			return ValidationResult{Errors: []string{fmt.Sprintf("reading payload: %v", err)}}
		}
		res := ValidationResult{Payload: Payload{Kind: KindReading, Reading: reading.Reading}}
		if len(reading.MoodFlow) > 0 {
			segs, errs := decodeMoodFlow(reading.MoodFlow)
			res.Payload.Segments = segs
			res.Errors = errs
			for _, s := range segs {
				res.LabelLeaks = append(res.LabelLeaks, ScanLabelLeaks(s.Mood)...)
			}
		}
		if strings.TrimSpace(reading.Reading) == "" && len(res.Payload.Segments) == 0 {
			res.Errors = append(res.Errors, "reading payload has neither text nor mood flow")
		}
		res.Valid = len(res.Errors) == 0
		res.LabelLeaks = append(res.LabelLeaks, ScanLabelLeaks(reading.Reading)...)
		return res

	default:
		var s string
		if json.Unmarshal(probe, &s) == nil && allowProse {
			return ValidationResult{
				Valid:      true,
				Payload:    Payload{Kind: KindProse, Prose: s},
				LabelLeaks: ScanLabelLeaks(s),
			}
		}
		return ValidationResult{Errors: []string{"unrecognized payload shape"}}
	}
}

func isMoodFlowSegments(raw json.RawMessage) bool {
	t := strings.TrimSpace(string(raw))
	return strings.HasPrefix(t, "[")
}

func isMoodFlowReading(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return false
	}
	_, hasReading := m["reading"]
	_, hasFlow := m["mood_flow"]
	return hasReading || hasFlow
}

// decodeMoodFlow validates one segment at a time against the schema, keeping
// every violation attributable to its segment and rule. The percentage sum
// must land within [99,101] to absorb rounding.
func decodeMoodFlow(raw json.RawMessage) ([]MoodFlowSegment, []string) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, []string{fmt.Sprintf("mood flow is not an array: %v", err)}
	}

	var segs []MoodFlowSegment
	var errs []string
	sum := 0.0
	sumComplete := true
	for i, item := range items {
		var m map[string]interface{}
		if err := json.Unmarshal(item, &m); err != nil {
			errs = append(errs, fmt.Sprintf("segment %d: not an object", i+1))
			sumComplete = false
			continue
		}
		seg := MoodFlowSegment{}
		if mood, _ := m["mood"].(string); strings.TrimSpace(mood) == "" {
			errs = append(errs, fmt.Sprintf("segment %d: mood must be a non-empty string", i+1))
		} else {
			seg.Mood = mood
		}
		if color, _ := m["color"].(string); !hexColorRe.MatchString(color) {
			errs = append(errs, fmt.Sprintf("segment %d: color %q must be a 6-digit hex color", i+1, m["color"]))
		} else {
			seg.Color = color
		}
		if pct, ok := m["percentage"].(float64); !ok {
			errs = append(errs, fmt.Sprintf("segment %d: percentage missing or not numeric", i+1))
			sumComplete = false
		} else {
			seg.Percentage = pct
			sum += pct
			if pct <= 0 || pct > 100 {
				errs = append(errs, fmt.Sprintf("segment %d: percentage %v outside (0,100]", i+1, pct))
			}
		}
		seg.Context, _ = m["context"].(string)
		segs = append(segs, seg)
	}

	if len(items) > 0 && sumComplete && (sum < 99 || sum > 101) {
		errs = append(errs, fmt.Sprintf("mood flow percentages sum to %g, want 100 within ±1", sum))
	}
	return segs, errs
}
