package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// similarCount is how many resembling past check-ins go into a prompt.
const similarCount = 2

var errNoTextEmbedding = errors.New("entries are embedded by profile, not text")

var quadrantAxis = map[catalog.Quadrant]int{
	catalog.QuadrantRed:    0,
	catalog.QuadrantYellow: 1,
	catalog.QuadrantBlue:   2,
	catalog.QuadrantGreen:  3,
}

// Profile embeds an entry by its emotional shape: quadrant mix, mean
// energy and pleasantness of the labelled emotions, and intensity. The
// constant last component keeps the vector non-zero.
func Profile(e ruler.LogEntry) []float32 {
	v := make([]float32, 8)
	if n := float32(len(e.Emotions)); n > 0 {
		for _, em := range e.Emotions {
			if i, ok := quadrantAxis[em.Quadrant]; ok {
				v[i] += 1 / n
			}
			v[4] += float32(em.Energy) / 5 / n
			v[5] += float32(em.Pleasantness) / 5 / n
		}
	}
	v[6] = float32(e.Intensity) / 10
	v[7] = 0.1
	return v
}

// Similar returns up to n entries of history whose profile is closest to
// entry, most similar first. Entries sharing entry's timestamp or listed in
// skip are not considered.
func Similar(ctx context.Context, entry ruler.LogEntry, history []ruler.LogEntry, n int, skip map[string]bool) ([]ruler.LogEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	db := chromem.NewDB()
	col, err := db.CreateCollection("history", nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoTextEmbedding
	})
	if err != nil {
		return nil, fmt.Errorf("create history collection: %w", err)
	}

	byID := make(map[string]ruler.LogEntry, len(history))
	docs := make([]chromem.Document, 0, len(history))
	for _, h := range history {
		if h.Timestamp == entry.Timestamp || skip[h.Timestamp] {
			continue
		}
		if _, dup := byID[h.Timestamp]; dup {
			continue
		}
		byID[h.Timestamp] = h
		docs = append(docs, chromem.Document{ID: h.Timestamp, Embedding: Profile(h)})
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("index history: %w", err)
	}

	if n > len(docs) {
		n = len(docs)
	}
	results, err := col.QueryEmbedding(ctx, Profile(entry), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	out := make([]ruler.LogEntry, 0, len(results))
	for _, r := range results {
		out = append(out, byID[r.ID])
	}
	return out, nil
}
