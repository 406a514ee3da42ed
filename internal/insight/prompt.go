package insight

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// CoachSystemPrompt frames the model as a RULER coach and fixes the reply format.
const CoachSystemPrompt = `You are "ImXin" (今心), an emotional intelligence coach grounded in the RULER framework (Recognizing, Labeling, Understanding, Expressing, Regulating).

Help the user close their check-in with an empathetic, evidence-based insight.

## Role
- Tone: professional yet warm, empathetic and objective.
- Framework: connect the current emotion to its underlying "why" and suggest a "how" for regulation.
- Language: Traditional Chinese (Taiwan).

## Input
1. R/L: emotion names, quadrant and intensity.
2. U: context and trigger of the feeling.
3. E: what the user wrote.
4. R: the regulation strategies they chose.
5. Physical: sleep and activity, when available.

## Output (JSON only)
{
  "summary": "Synthesize the check-in into one meaningful insight.",
  "underlyingPatterns": ["Pattern 1", "Need 1"],
  "suggestedAction": "A specific micro-step based on their regulation choice.",
  "empatheticQuote": "A short, resonant quote to close the session.",
  "colorTheory": "A Morandi colour suggestion."
}`

const (
	noNote     = "User did not provide a specific note."
	noPhysical = "No physical data available."
)

type promptMood struct {
	Quadrant  string   `json:"quadrant,omitempty"`
	Name      string   `json:"name,omitempty"`
	Emotions  []string `json:"emotions,omitempty"`
	Intensity int      `json:"intensity"`
}

type promptContext struct {
	What    string `json:"what,omitempty"`
	Who     string `json:"who,omitempty"`
	Where   string `json:"where,omitempty"`
	Trigger string `json:"trigger,omitempty"`
	Need    string `json:"need,omitempty"`
}

type promptHistory struct {
	Timestamp string   `json:"timestamp"`
	Emotions  []string `json:"emotions"`
	Intensity int      `json:"intensity"`
	PostMood  string   `json:"postMood,omitempty"`
}

type userPrompt struct {
	CurrentMood     promptMood      `json:"currentMood"`
	UserNote        string          `json:"userNote"`
	Understanding   *promptContext  `json:"understanding,omitempty"`
	Strategies      []string        `json:"strategies,omitempty"`
	PhysicalContext interface{}     `json:"physicalContext"`
	RecentHistory   []promptHistory `json:"recentHistory"`
	SimilarMoments  []promptHistory `json:"similarMoments,omitempty"`
}

func emotionNames(e ruler.LogEntry) []string {
	names := make([]string, 0, len(e.Emotions))
	for _, em := range e.Emotions {
		names = append(names, em.Name)
	}
	return names
}

// buildPrompt assembles the user message. Free text is scrubbed; history
// carries only labels and numbers. Older check-ins that resemble the
// current one are added as similar moments.
func (c *Client) buildPrompt(ctx context.Context, entry ruler.LogEntry, history []ruler.LogEntry, physical *PhysicalData) userPrompt {
	p := userPrompt{
		CurrentMood: promptMood{
			Emotions:  emotionNames(entry),
			Intensity: entry.Intensity,
		},
		UserNote:        noNote,
		PhysicalContext: noPhysical,
		RecentHistory:   []promptHistory{},
	}
	if primary, ok := entry.PrimaryEmotion(); ok {
		p.CurrentMood.Quadrant = string(primary.Quadrant)
		p.CurrentMood.Name = primary.Name
	}
	if x := entry.Expressing; x != nil && x.Expression != "" {
		p.UserNote = c.scrubber.Scrub(x.Expression).Scrubbed
	}
	if u := entry.Understanding; u != nil {
		pc := &promptContext{
			What:    u.What,
			Who:     u.Who,
			Where:   u.Where,
			Trigger: c.scrubber.Scrub(u.Trigger).Scrubbed,
		}
		if u.Need != nil {
			pc.Need = *u.Need
		}
		p.Understanding = pc
	}
	if r := entry.Regulating; r != nil {
		p.Strategies = append([]string(nil), r.SelectedStrategies...)
	}
	if physical != nil {
		p.PhysicalContext = physical
	}

	n := c.cfg.HistorySize
	for _, h := range history {
		if len(p.RecentHistory) >= n {
			break
		}
		if h.Timestamp == entry.Timestamp {
			continue
		}
		p.RecentHistory = append(p.RecentHistory, toHistory(h))
	}

	recent := make(map[string]bool, len(p.RecentHistory))
	for _, h := range p.RecentHistory {
		recent[h.Timestamp] = true
	}
	similar, err := Similar(ctx, entry, history, similarCount, recent)
	if err != nil {
		c.logger.Debug(ctx, "similar moments unavailable", zap.Error(err))
	}
	for _, h := range similar {
		p.SimilarMoments = append(p.SimilarMoments, toHistory(h))
	}
	return p
}

func toHistory(h ruler.LogEntry) promptHistory {
	return promptHistory{
		Timestamp: h.Timestamp,
		Emotions:  emotionNames(h),
		Intensity: h.Intensity,
		PostMood:  h.PostMood,
	}
}
