package insight

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"
)

// FallbackItem is the minimal capture view the fallback path needs.
type FallbackItem struct {
	MoodName string
	Note     string
	At       time.Time
	Tags     []string
}

const fallbackDefaultColor = "#9AA5B1"

var fallbackColors = map[string]string{
	"happy":      "#FFD166",
	"joyful":     "#FFB84C",
	"excited":    "#FF8C42",
	"energized":  "#F25C54",
	"calm":       "#81C784",
	"peaceful":   "#7CB9E8",
	"neutral":    "#B0BEC5",
	"sad":        "#5C7CFA",
	"melancholy": "#7986CB",
	"tired":      "#90A4AE",
	"drained":    "#78909C",
	"anxious":    "#E57373",
	"angry":      "#D64545",
}

// Descriptive phrases stand in for raw mood labels in generated-looking
// output. None of them contains its own key, which keeps the fallback clean
// under the validator's banned-word rule.
var fallbackPhrases = map[string]string{
	"happy":      "bright and light",
	"joyful":     "a warm glow",
	"excited":    "sparks flying",
	"energized":  "full of charge",
	"calm":       "quiet contentment",
	"peaceful":   "gentle stillness",
	"neutral":    "an even keel",
	"sad":        "a heavy heart",
	"melancholy": "soft blue notes",
	"tired":      "running low",
	"drained":    "empty reserves",
	"anxious":    "restless energy",
	"angry":      "stormy edges",
}

var genericPhrases = []string{
	"shifting undercurrents",
	"a mixed stretch",
	"the quiet in-between",
	"unsettled weather",
	"a steady undertone",
}

// BuildMoodFlow deterministically synthesizes a mood flow from raw captures.
// It is the safe branch the orchestrator takes when generated output is
// missing or invalid, so its result must always pass the mood-flow checks:
// one segment per distinct mood name, every percentage positive, total
// exactly 100.
func BuildMoodFlow(items []FallbackItem) []MoodFlowSegment {
	if len(items) == 0 {
		return []MoodFlowSegment{}
	}

	type group struct {
		name  string
		count int
		tag   string
	}
	byName := make(map[string]*group)
	var order []*group
	for _, it := range items {
		g, ok := byName[it.MoodName]
		if !ok {
			g = &group{name: it.MoodName}
			byName[it.MoodName] = g
			order = append(order, g)
		}
		g.count++
		if g.tag == "" && len(it.Tags) > 0 {
			g.tag = it.Tags[0]
		}
	}

	// count descending, first appearance breaking ties
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})

	total := len(items)
	segs := make([]MoodFlowSegment, 0, len(order))
	sum := 0
	for _, g := range order {
		pct := int(math.Round(float64(g.count) / float64(total) * 100))
		if pct < 1 {
			pct = 1
		}
		sum += pct
		segs = append(segs, MoodFlowSegment{
			Mood:       phraseFor(g.name),
			Percentage: float64(pct),
			Color:      colorFor(g.name),
			Context:    g.tag,
		})
	}

	// Rounding correction: push the whole signed difference onto the largest
	// segment so the total is exactly 100. Never spread it around.
	if diff := 100 - sum; diff != 0 {
		segs[0].Percentage += float64(diff)
	}
	return segs
}

func colorFor(name string) string {
	if c, ok := fallbackColors[strings.ToLower(name)]; ok {
		return c
	}
	return fallbackDefaultColor
}

// phraseFor maps a mood name to a short descriptive phrase that never echoes
// the raw label. Unknown moods pick a generic phrase by FNV hash, skipping
// any phrase the name happens to appear in.
func phraseFor(name string) string {
	if p, ok := fallbackPhrases[strings.ToLower(name)]; ok {
		return p
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name)))
	idx := int(h.Sum32()) % len(genericPhrases)
	if idx < 0 {
		idx += len(genericPhrases)
	}
	lower := strings.ToLower(name)
	for i := 0; i < len(genericPhrases); i++ {
		p := genericPhrases[(idx+i)%len(genericPhrases)]
		if !strings.Contains(strings.ToLower(p), lower) {
			return p
		}
	}
	return "a passing mood"
}
