// Package resilience derives growth statistics from committed check-ins.
//
// Every function here is a pure read over a log slice (newest first, as the
// repository returns it). Nil and empty inputs are valid and yield zero
// values. Calendar grouping always happens in an explicit time.Location.
package resilience

import (
	"math"
	"sort"
	"time"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// Score components.
const (
	BaseScore        = 50
	FullFlowBonus    = 20
	MuchLighterBonus = 30
	CalmerBonus      = 15
	MaxScore         = 100
)

// Window sizes.
const (
	TrendDays     = 7
	HeatmapDays   = 30
	IntensityLogs = 7
)

// UnknownEmotion labels a day whose entries carry no emotion.
const UnknownEmotion = "未知"

// NoQuadrant colours heatmap cells whose entry has no emotion.
const NoQuadrant = "gray"

const dateLayout = "2006-01-02"

// DailyScore is the averaged resilience of one calendar day.
type DailyScore struct {
	Date            string `json:"date"`
	Score           int    `json:"score"`
	DominantEmotion string `json:"dominantEmotion"`
}

// EntryScore scores a single check-in.
func EntryScore(e ruler.LogEntry) int {
	score := BaseScore
	if e.HasFullRuler() {
		score += FullFlowBonus
	}
	switch e.PostMood {
	case catalog.MoodMuchLighter:
		score += MuchLighterBonus
	case catalog.MoodSomewhatCalm:
		score += CalmerBonus
	}
	return score
}

// localDate returns the calendar date of e in loc. ok is false when the
// timestamp does not parse; such entries are skipped by every date-based view.
func localDate(e ruler.LogEntry, loc *time.Location) (string, bool) {
	t, err := e.Time()
	if err != nil {
		return "", false
	}
	return t.In(loc).Format(dateLayout), true
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// DailyScores groups logs by local date and returns the most recent
// TrendDays buckets, oldest first. The dominant emotion of a day is the
// primary emotion of the first entry seen for it, which for repository
// order is the newest.
func DailyScores(logs []ruler.LogEntry, loc *time.Location) []DailyScore {
	loc = location(loc)

	type bucket struct {
		total, count int
		emotion      string
	}
	buckets := make(map[string]*bucket)
	var dates []string

	for _, e := range logs {
		date, ok := localDate(e, loc)
		if !ok {
			continue
		}
		b, seen := buckets[date]
		if !seen {
			b = &bucket{emotion: UnknownEmotion}
			if primary, ok := e.PrimaryEmotion(); ok && primary.Name != "" {
				b.emotion = primary.Name
			}
			buckets[date] = b
			dates = append(dates, date)
		}
		b.total += EntryScore(e)
		b.count++
	}

	// ISO dates sort chronologically as strings.
	sort.Strings(dates)
	if len(dates) > TrendDays {
		dates = dates[len(dates)-TrendDays:]
	}
	out := make([]DailyScore, 0, len(dates))
	for _, date := range dates {
		b := buckets[date]
		score := int(math.Round(float64(b.total) / float64(b.count)))
		if score > MaxScore {
			score = MaxScore
		}
		out = append(out, DailyScore{Date: date, Score: score, DominantEmotion: b.emotion})
	}
	return out
}

// OverallScore is the rounded mean of DailyScores, or 0 without logs.
func OverallScore(logs []ruler.LogEntry, loc *time.Location) int {
	return meanScore(DailyScores(logs, loc))
}

func meanScore(days []DailyScore) int {
	if len(days) == 0 {
		return 0
	}
	sum := 0
	for _, d := range days {
		sum += d.Score
	}
	return int(math.Round(float64(sum) / float64(len(days))))
}

// Level names a resilience score band.
func Level(score int) string {
	switch {
	case score > 70:
		return "穩健"
	case score > 40:
		return "成長中"
	default:
		return "重建中"
	}
}

// HeatmapDay is one cell of the 30-day calendar.
type HeatmapDay struct {
	Date      string           `json:"date"`
	HasData   bool             `json:"hasData"`
	Intensity int              `json:"intensity,omitempty"`
	Quadrant  catalog.Quadrant `json:"quadrant,omitempty"`
	Count     int              `json:"count,omitempty"`
}

// Heatmap returns exactly HeatmapDays cells ending at today, oldest first.
// Logs are indexed by date in one pass; each cell then reads its bucket.
func Heatmap(logs []ruler.LogEntry, today time.Time, loc *time.Location) []HeatmapDay {
	loc = location(loc)

	type dayIndex struct {
		first ruler.LogEntry
		count int
	}
	index := make(map[string]*dayIndex)
	for _, e := range logs {
		date, ok := localDate(e, loc)
		if !ok {
			continue
		}
		if d, seen := index[date]; seen {
			d.count++
			continue
		}
		index[date] = &dayIndex{first: e, count: 1}
	}

	today = today.In(loc)
	y, m, d := today.Date()
	out := make([]HeatmapDay, 0, HeatmapDays)
	for i := HeatmapDays - 1; i >= 0; i-- {
		// Noon anchor: a DST shift never moves the date.
		date := time.Date(y, m, d-i, 12, 0, 0, 0, loc).Format(dateLayout)
		bucket, ok := index[date]
		if !ok {
			out = append(out, HeatmapDay{Date: date})
			continue
		}
		cell := HeatmapDay{
			Date:      date,
			HasData:   true,
			Intensity: bucket.first.Intensity,
			Quadrant:  NoQuadrant,
			Count:     bucket.count,
		}
		if cell.Intensity == 0 {
			cell.Intensity = ruler.DefaultIntensity
		}
		if primary, ok := bucket.first.PrimaryEmotion(); ok && primary.Quadrant != "" {
			cell.Quadrant = primary.Quadrant
		}
		out = append(out, cell)
	}
	return out
}

// IntensityPoint is one bar of the intensity chart.
type IntensityPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// IntensitySeries returns the intensities of the IntensityLogs newest
// entries, oldest first, labelled M/D.
func IntensitySeries(logs []ruler.LogEntry, loc *time.Location) []IntensityPoint {
	loc = location(loc)
	n := len(logs)
	if n > IntensityLogs {
		n = IntensityLogs
	}
	out := make([]IntensityPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		e := logs[i]
		p := IntensityPoint{Value: e.Intensity}
		if p.Value == 0 {
			p.Value = ruler.DefaultIntensity
		}
		if t, err := e.Time(); err == nil {
			p.Label = t.In(loc).Format("1/2")
		}
		out = append(out, p)
	}
	return out
}
