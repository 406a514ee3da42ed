package resilience

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

var (
	taipei = time.FixedZone("Asia/Taipei", 8*3600)
	today  = time.Date(2024, 6, 30, 15, 0, 0, 0, taipei)
)

func emotion(id string) catalog.Emotion {
	e, ok := catalog.EmotionByID(id)
	if !ok {
		panic("unknown emotion " + id)
	}
	return e
}

func at(t time.Time) string { return ruler.FormatTimestamp(t) }

func quick(ts time.Time, intensity int, ids ...string) ruler.LogEntry {
	e := ruler.LogEntry{Intensity: intensity, Timestamp: at(ts)}
	for _, id := range ids {
		e.Emotions = append(e.Emotions, emotion(id))
	}
	return e
}

func full(ts time.Time, mood string, strategies ...string) ruler.LogEntry {
	e := quick(ts, 6, "anxious")
	e.Understanding = &ruler.Understanding{What: "工作", Who: "同事", Where: "辦公室"}
	e.Expressing = &ruler.Expressing{Expression: "x", Mode: ruler.ModeText}
	e.Regulating = &ruler.Regulating{SelectedStrategies: strategies}
	e.PostMood = mood
	e.IsFullFlow = true
	return e
}

func TestEntryScore(t *testing.T) {
	tests := []struct {
		name  string
		entry ruler.LogEntry
		want  int
	}{
		{"quick", quick(today, 5, "calm"), 50},
		{"full no mood", full(today, ""), 70},
		{"full lighter", full(today, catalog.MoodMuchLighter), 100},
		{"full calmer", full(today, catalog.MoodSomewhatCalm), 85},
		{"full same", full(today, catalog.MoodAboutTheSame), 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntryScore(tt.entry))
		})
	}

	partial := full(today, catalog.MoodMuchLighter)
	partial.Regulating = nil
	assert.Equal(t, 80, EntryScore(partial), "full-flow bonus needs all three payloads")
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, 0, OverallScore(nil, taipei))
	assert.Equal(t, 0, OverallScore([]ruler.LogEntry{}, taipei))
	assert.Empty(t, DailyScores(nil, taipei))
	assert.Empty(t, IntensitySeries(nil, taipei))

	g := Granularity(nil)
	assert.Equal(t, []string{}, g.UniqueEmotions)
	assert.Equal(t, GranularityBeginner, g.Level)

	d := StrategyDiversity(nil)
	assert.Equal(t, 0, d.Count)
	assert.Equal(t, DiversityStarter, d.Level)
}

func TestDailyScores_FullLighterToday(t *testing.T) {
	logs := []ruler.LogEntry{full(today, catalog.MoodMuchLighter)}
	days := DailyScores(logs, taipei)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-06-30", days[0].Date)
	assert.Equal(t, 100, days[0].Score)
	assert.Equal(t, "焦慮的", days[0].DominantEmotion)
	assert.Equal(t, 100, OverallScore(logs, taipei))
}

func TestDailyScores_AveragesAndOrders(t *testing.T) {
	logs := []ruler.LogEntry{ // newest first
		full(today, catalog.MoodSomewhatCalm),                  // 85
		quick(today.Add(-time.Hour), 4, "calm"),                // 50
		quick(today.AddDate(0, 0, -1), 3, "happy"),             // 50
		full(today.AddDate(0, 0, -2), catalog.MoodMuchLighter), // 100
	}
	days := DailyScores(logs, taipei)
	require.Len(t, days, 3)
	assert.Equal(t, []string{"2024-06-28", "2024-06-29", "2024-06-30"},
		[]string{days[0].Date, days[1].Date, days[2].Date})
	assert.Equal(t, 100, days[0].Score)
	assert.Equal(t, 50, days[1].Score)
	assert.Equal(t, 68, days[2].Score) // (85+50)/2 = 67.5
	assert.Equal(t, "焦慮的", days[2].DominantEmotion, "newest entry of the day wins")
	assert.Equal(t, 73, OverallScore(logs, taipei)) // (100+50+68)/3 = 72.67
}

func TestDailyScores_KeepsLastSevenDays(t *testing.T) {
	var logs []ruler.LogEntry
	for i := 0; i < 10; i++ {
		logs = append(logs, quick(today.AddDate(0, 0, -i), 5, "calm"))
	}
	days := DailyScores(logs, taipei)
	require.Len(t, days, TrendDays)
	assert.Equal(t, "2024-06-24", days[0].Date)
	assert.Equal(t, "2024-06-30", days[6].Date)
}

func TestDailyScores_UsesLocation(t *testing.T) {
	// 2024-06-29 20:00 UTC is already the 30th in Taipei.
	e := quick(time.Date(2024, 6, 29, 20, 0, 0, 0, time.UTC), 5, "calm")
	assert.Equal(t, "2024-06-30", DailyScores([]ruler.LogEntry{e}, taipei)[0].Date)
	assert.Equal(t, "2024-06-29", DailyScores([]ruler.LogEntry{e}, time.UTC)[0].Date)
}

func TestDailyScores_SkipsBadTimestampsAndMissingEmotion(t *testing.T) {
	logs := []ruler.LogEntry{
		{Intensity: 5, Timestamp: "not a time"},
		{Intensity: 5, Timestamp: at(today)},
	}
	days := DailyScores(logs, taipei)
	require.Len(t, days, 1)
	assert.Equal(t, UnknownEmotion, days[0].DominantEmotion)
}

func TestOverallScoreBounds(t *testing.T) {
	moods := append([]string{""}, catalog.MoodOptions...)
	for n := 0; n < 20; n++ {
		var logs []ruler.LogEntry
		for i := 0; i <= n; i++ {
			ts := today.Add(-time.Duration(i*7) * time.Hour)
			if i%2 == 0 {
				logs = append(logs, full(ts, moods[i%len(moods)]))
			} else {
				logs = append(logs, quick(ts, i%10+1, "calm"))
			}
		}
		score := OverallScore(logs, taipei)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, MaxScore)
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "穩健", Level(71))
	assert.Equal(t, "成長中", Level(70))
	assert.Equal(t, "成長中", Level(41))
	assert.Equal(t, "重建中", Level(40))
	assert.Equal(t, "重建中", Level(0))
}

func TestHeatmap_AlwaysThirtyDays(t *testing.T) {
	cases := map[string][]ruler.LogEntry{
		"empty":  nil,
		"today":  {quick(today, 3, "calm")},
		"old":    {quick(today.AddDate(0, -3, 0), 3, "calm")},
		"future": {quick(today.AddDate(0, 0, 5), 3, "calm")},
	}
	for name, logs := range cases {
		t.Run(name, func(t *testing.T) {
			cells := Heatmap(logs, today, taipei)
			require.Len(t, cells, HeatmapDays)
			assert.Equal(t, "2024-06-01", cells[0].Date)
			assert.Equal(t, "2024-06-30", cells[HeatmapDays-1].Date)
		})
	}
}

func TestHeatmap_Cells(t *testing.T) {
	logs := []ruler.LogEntry{
		quick(today, 9, "enraged"),
		quick(today.Add(-2*time.Hour), 2, "calm"),
		quick(today.AddDate(0, 0, -3), 0),
	}
	cells := Heatmap(logs, today, taipei)

	last := cells[HeatmapDays-1]
	assert.True(t, last.HasData)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, 9, last.Intensity, "first entry of the day")
	assert.Equal(t, catalog.QuadrantRed, last.Quadrant)

	threeAgo := cells[HeatmapDays-4]
	assert.True(t, threeAgo.HasData)
	assert.Equal(t, ruler.DefaultIntensity, threeAgo.Intensity)
	assert.Equal(t, catalog.Quadrant(NoQuadrant), threeAgo.Quadrant)

	empty := cells[HeatmapDays-2]
	assert.False(t, empty.HasData)
	assert.Zero(t, empty.Count)
}

func TestHeatmap_DSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	cells := Heatmap(nil, time.Date(2024, 3, 20, 0, 30, 0, 0, ny), ny)
	seen := make(map[string]bool)
	for _, c := range cells {
		assert.False(t, seen[c.Date], "duplicate date %s", c.Date)
		seen[c.Date] = true
	}
	assert.True(t, seen["2024-03-10"])
}

func TestIntensitySeries(t *testing.T) {
	var logs []ruler.LogEntry
	for i := 0; i < 9; i++ {
		logs = append(logs, quick(today.AddDate(0, 0, -i), i+1, "calm"))
	}
	logs[0].Intensity = 0

	series := IntensitySeries(logs, taipei)
	require.Len(t, series, IntensityLogs)
	assert.Equal(t, IntensityPoint{Label: "6/24", Value: 7}, series[0])
	assert.Equal(t, IntensityPoint{Label: "6/30", Value: ruler.DefaultIntensity}, series[6])
}

func TestGranularity(t *testing.T) {
	// One id per distinct name; the catalog reuses a few names across ids.
	ids := []string{}
	named := map[string]bool{}
	for _, e := range catalog.Emotions() {
		if named[e.Name] {
			continue
		}
		named[e.Name] = true
		ids = append(ids, e.ID)
	}
	require.Less(t, len(ids), catalog.EmotionCatalogSize)

	tests := []struct {
		distinct int
		level    string
	}{
		{0, GranularityBeginner},
		{4, GranularityBeginner},
		{5, GranularityGrowing},
		{14, GranularityGrowing},
		{15, GranularityRich},
		{29, GranularityRich},
		{30, GranularityExpert},
		{len(ids), GranularityExpert},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.distinct), func(t *testing.T) {
			var logs []ruler.LogEntry
			for i := 0; i < tt.distinct; i++ {
				// Repeat each emotion to check it is only counted once.
				logs = append(logs, quick(today, 5, ids[i], ids[i]), quick(today, 5, ids[i]))
			}
			g := Granularity(logs)
			assert.Equal(t, tt.distinct, g.Count)
			assert.Len(t, g.UniqueEmotions, tt.distinct)
			assert.Equal(t, tt.level, g.Level)
		})
	}
}

func TestGranularity_CountsNamesNotIDs(t *testing.T) {
	calm, serene := emotion("calm"), emotion("serene")
	require.Equal(t, calm.Name, serene.Name)
	require.NotEqual(t, calm.ID, serene.ID)

	g := Granularity([]ruler.LogEntry{quick(today, 3, "calm"), quick(today, 2, "serene", "anxious")})
	assert.Equal(t, 2, g.Count)
	assert.Equal(t, []string{calm.Name, emotion("anxious").Name}, g.UniqueEmotions)

	var every []string
	for _, e := range catalog.Emotions() {
		every = append(every, e.ID)
	}
	all := Granularity([]ruler.LogEntry{quick(today, 5, every...)})
	assert.Less(t, all.Count, catalog.EmotionCatalogSize, "the full catalog has repeated names")
	assert.Equal(t, GranularityExpert, all.Level)
}

func TestStrategyDiversity(t *testing.T) {
	var titles []string
	for _, q := range catalog.Quadrants {
		for _, s := range catalog.StrategiesFor(q) {
			titles = append(titles, s.Title)
		}
	}
	require.Len(t, titles, catalog.StrategyCatalogSize)

	tests := []struct {
		distinct int
		level    string
	}{
		{0, DiversityStarter},
		{5, DiversityStarter},
		{6, DiversityDeveloping},
		{11, DiversityDeveloping},
		{12, DiversityDiverse},
		{17, DiversityDiverse},
		{18, DiversityMaster},
		{24, DiversityMaster},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.distinct), func(t *testing.T) {
			logs := []ruler.LogEntry{quick(today, 5, "calm")}
			seen := map[string]bool{}
			for i := 0; i < tt.distinct; i++ {
				seen[titles[i]] = true
				logs = append(logs, full(today, "", titles[i], titles[0]))
			}
			d := StrategyDiversity(logs)
			assert.Equal(t, len(seen), d.Count)
			assert.Equal(t, tt.level, d.Level)
		})
	}
}

func TestBuildDashboard(t *testing.T) {
	logs := []ruler.LogEntry{
		full(today, catalog.MoodMuchLighter, "深呼吸"),
		quick(today.AddDate(0, 0, -1), 4, "calm"),
	}
	d := BuildDashboard(logs, today, taipei)
	assert.Equal(t, 2, d.TotalLogs)
	assert.Equal(t, 75, d.OverallScore)
	assert.Equal(t, "穩健", d.Level)
	assert.Len(t, d.Daily, 2)
	assert.Len(t, d.Heatmap, HeatmapDays)
	assert.Len(t, d.Intensity, 2)
	assert.Equal(t, 2, d.Granularity.Count)
	assert.Equal(t, []string{"深呼吸"}, d.Diversity.UniqueStrategies)
}
