package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

func entry(ts string, intensity int, ids ...string) ruler.LogEntry {
	e := ruler.LogEntry{Intensity: intensity, Timestamp: ts}
	for _, id := range ids {
		em, ok := catalog.EmotionByID(id)
		if ok {
			e.Emotions = append(e.Emotions, em)
		}
	}
	return e
}

func TestProfile(t *testing.T) {
	p := Profile(entry("t", 5, "anxious"))
	require.Len(t, p, 8)
	assert.Equal(t, float32(1), p[quadrantAxis[catalog.QuadrantRed]])
	assert.InDelta(t, 0.5, p[6], 1e-6)

	empty := Profile(ruler.LogEntry{})
	assert.NotZero(t, empty[7], "empty entries still embed to a non-zero vector")
}

func TestSimilar(t *testing.T) {
	ctx := context.Background()
	current := entry("now", 8, "anxious")
	history := []ruler.LogEntry{
		current,
		entry("calm-1", 2, "calm"),
		entry("anxious-1", 7, "anxious"),
		entry("happy-1", 5, "happy"),
		entry("anxious-2", 9, "anxious"),
	}

	got, err := Similar(ctx, current, history, 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, g := range got {
		assert.Contains(t, []string{"anxious-1", "anxious-2"}, g.Timestamp)
	}

	got, err = Similar(ctx, current, history, 1, map[string]bool{"anxious-1": true, "anxious-2": true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, "calm-1", got[0].Timestamp, "red is closer to yellow than to green here")

	got, err = Similar(ctx, current, history, 10, nil)
	require.NoError(t, err)
	assert.Len(t, got, 4, "n is capped at the candidate count")

	got, err = Similar(ctx, current, []ruler.LogEntry{current}, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Similar(ctx, current, history, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
