package flow

import (
	"fmt"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// normalizeQuadrants validates qs and drops duplicates, keeping order.
func normalizeQuadrants(qs []catalog.Quadrant) ([]catalog.Quadrant, error) {
	out := make([]catalog.Quadrant, 0, len(qs))
	seen := make(map[catalog.Quadrant]bool, len(qs))
	for _, q := range qs {
		if !q.Valid() {
			return nil, fmt.Errorf("%w: quadrant %q", ErrUnknownSelection, q)
		}
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out, nil
}

func containsQuadrant(qs []catalog.Quadrant, q catalog.Quadrant) bool {
	for _, x := range qs {
		if x == q {
			return true
		}
	}
	return false
}

// keepInQuadrants filters emotions to those in qs.
func keepInQuadrants(emotions []catalog.Emotion, qs []catalog.Quadrant) []catalog.Emotion {
	if emotions == nil {
		return nil
	}
	out := make([]catalog.Emotion, 0, len(emotions))
	for _, e := range emotions {
		if containsQuadrant(qs, e.Quadrant) {
			out = append(out, e)
		}
	}
	return out
}

// resolveEmotions looks ids up in the catalog. Each must belong to one of
// the selected quadrants. Duplicates are dropped.
func resolveEmotions(ids []string, qs []catalog.Quadrant) ([]catalog.Emotion, error) {
	out := make([]catalog.Emotion, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		e, ok := catalog.EmotionByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: emotion %q", ErrUnknownSelection, id)
		}
		if !containsQuadrant(qs, e.Quadrant) {
			return nil, fmt.Errorf("%w: emotion %q is outside the selected quadrants", ErrUnknownSelection, id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, e)
		}
	}
	return out, nil
}

func cloneUnderstanding(u *ruler.Understanding) *ruler.Understanding {
	out := *u
	if u.Need != nil {
		n := *u.Need
		out.Need = &n
	}
	return &out
}
