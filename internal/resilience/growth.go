package resilience

import (
	"time"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// Granularity levels, by share of the emotion catalog used.
const (
	GranularityBeginner = "beginner"
	GranularityGrowing  = "growing"
	GranularityRich     = "rich"
	GranularityExpert   = "expert"
)

// Diversity levels, by share of the strategy catalog used.
const (
	DiversityStarter    = "starter"
	DiversityDeveloping = "developing"
	DiversityDiverse    = "diverse"
	DiversityMaster     = "master"
)

// GranularityStats describes the breadth of the emotion vocabulary used.
type GranularityStats struct {
	UniqueEmotions []string `json:"uniqueEmotions"`
	Count          int      `json:"count"`
	Percentage     int      `json:"percentage"`
	Level          string   `json:"level"`
}

// Granularity counts distinct emotion names across all logs, in order of
// first appearance.
func Granularity(logs []ruler.LogEntry) GranularityStats {
	seen := make(map[string]bool)
	unique := []string{}
	for _, e := range logs {
		for _, em := range e.Emotions {
			if em.Name == "" || seen[em.Name] {
				continue
			}
			seen[em.Name] = true
			unique = append(unique, em.Name)
		}
	}

	pct := percent(len(unique), catalog.EmotionCatalogSize)
	level := GranularityBeginner
	switch {
	case pct >= 30:
		level = GranularityExpert
	case pct >= 15:
		level = GranularityRich
	case pct >= 5:
		level = GranularityGrowing
	}
	return GranularityStats{UniqueEmotions: unique, Count: len(unique), Percentage: pct, Level: level}
}

// DiversityStats describes how many regulation strategies have been tried.
type DiversityStats struct {
	UniqueStrategies []string `json:"uniqueStrategies"`
	Count            int      `json:"count"`
	Percentage       int      `json:"percentage"`
	Level            string   `json:"level"`
}

// StrategyDiversity counts distinct strategy titles across all logs.
func StrategyDiversity(logs []ruler.LogEntry) DiversityStats {
	seen := make(map[string]bool)
	unique := []string{}
	for _, e := range logs {
		if e.Regulating == nil {
			continue
		}
		for _, title := range e.Regulating.SelectedStrategies {
			if title == "" || seen[title] {
				continue
			}
			seen[title] = true
			unique = append(unique, title)
		}
	}

	pct := percent(len(unique), catalog.StrategyCatalogSize)
	level := DiversityStarter
	switch {
	case pct >= 75:
		level = DiversityMaster
	case pct >= 50:
		level = DiversityDiverse
	case pct >= 25:
		level = DiversityDeveloping
	}
	return DiversityStats{UniqueStrategies: unique, Count: len(unique), Percentage: pct, Level: level}
}

// percent is n/total in whole percent, rounded down so a level is only
// reached once its threshold is actually met.
func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return n * 100 / total
}

// Dashboard bundles every view for the HTTP and terminal surfaces.
type Dashboard struct {
	GeneratedAt  time.Time        `json:"generatedAt"`
	TotalLogs    int              `json:"totalLogs"`
	OverallScore int              `json:"overallScore"`
	Level        string           `json:"level"`
	Daily        []DailyScore     `json:"daily"`
	Heatmap      []HeatmapDay     `json:"heatmap"`
	Intensity    []IntensityPoint `json:"intensity"`
	Granularity  GranularityStats `json:"granularity"`
	Diversity    DiversityStats   `json:"diversity"`
}

// BuildDashboard computes every view for logs as of today.
func BuildDashboard(logs []ruler.LogEntry, today time.Time, loc *time.Location) Dashboard {
	daily := DailyScores(logs, loc)
	overall := meanScore(daily)
	return Dashboard{
		GeneratedAt:  today,
		TotalLogs:    len(logs),
		OverallScore: overall,
		Level:        Level(overall),
		Daily:        daily,
		Heatmap:      Heatmap(logs, today, loc),
		Intensity:    IntensitySeries(logs, loc),
		Granularity:  Granularity(logs),
		Diversity:    StrategyDiversity(logs),
	}
}
