package ruler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
)

// Intensity bounds and default.
const (
	MinIntensity     = 1
	MaxIntensity     = 10
	DefaultIntensity = 5
)

// ClampIntensity forces n into [MinIntensity, MaxIntensity].
func ClampIntensity(n int) int {
	if n < MinIntensity {
		return MinIntensity
	}
	if n > MaxIntensity {
		return MaxIntensity
	}
	return n
}

// BodyScan is where and how a feeling shows up in the body.
type BodyScan struct {
	Location  string `json:"location"`
	Sensation string `json:"sensation"`
}

// Complete reports whether both fields are filled in.
func (b *BodyScan) Complete() bool {
	return b != nil && b.Location != "" && b.Sensation != ""
}

// Understanding captures the context and trigger of a feeling.
type Understanding struct {
	Trigger string  `json:"trigger"`
	Message string  `json:"message"`
	What    string  `json:"what"`
	Who     string  `json:"who"`
	Where   string  `json:"where"`
	Need    *string `json:"need"`
}

// Complete reports whether the required context fields are present.
func (u *Understanding) Complete() bool {
	return u != nil && u.What != "" && u.Who != "" && u.Where != ""
}

// Expression modes.
const (
	ModeText  = "text"
	ModeVoice = "voice"
)

// Expressing is the free-text expression of a feeling.
type Expressing struct {
	Expression string `json:"expression"`
	Prompt     string `json:"prompt"`
	Mode       string `json:"mode"`
}

// Regulating holds the strategies the user picked.
type Regulating struct {
	SelectedStrategies []string `json:"selectedStrategies"`
}

// Draft is the in-progress, uncommitted session.
type Draft struct {
	SessionID          string             `json:"sessionId,omitempty"`
	Step               Step               `json:"step"`
	SelectedQuadrants  []catalog.Quadrant `json:"selectedQuadrants"`
	SelectedEmotions   []catalog.Emotion  `json:"selectedEmotions"`
	EmotionIntensity   int                `json:"emotionIntensity"`
	BodyScanData       *BodyScan          `json:"bodyScanData"`
	UnderstandingData  *Understanding     `json:"understandingData"`
	ExpressingData     *Expressing        `json:"expressingData"`
	RegulatingData     *Regulating        `json:"regulatingData"`
	IsFullFlow         bool               `json:"isFullFlow"`
	PostRegulationMood string             `json:"postRegulationMood"`
}

// NewDraft returns a draft at the initial step with the default intensity.
func NewDraft(sessionID string) Draft {
	return Draft{
		SessionID:        sessionID,
		Step:             StepRecognizing,
		EmotionIntensity: DefaultIntensity,
	}
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	out := d
	if d.SelectedQuadrants != nil {
		out.SelectedQuadrants = append([]catalog.Quadrant{}, d.SelectedQuadrants...)
	}
	if d.SelectedEmotions != nil {
		out.SelectedEmotions = append([]catalog.Emotion{}, d.SelectedEmotions...)
	}
	if d.BodyScanData != nil {
		b := *d.BodyScanData
		out.BodyScanData = &b
	}
	if d.UnderstandingData != nil {
		u := cloneUnderstanding(*d.UnderstandingData)
		out.UnderstandingData = &u
	}
	if d.ExpressingData != nil {
		e := *d.ExpressingData
		out.ExpressingData = &e
	}
	if d.RegulatingData != nil {
		r := cloneRegulating(*d.RegulatingData)
		out.RegulatingData = &r
	}
	return out
}

func cloneUnderstanding(u Understanding) Understanding {
	if u.Need != nil {
		n := *u.Need
		u.Need = &n
	}
	return u
}

func cloneRegulating(r Regulating) Regulating {
	if r.SelectedStrategies != nil {
		r.SelectedStrategies = append([]string{}, r.SelectedStrategies...)
	}
	return r
}

// TimestampLayout is the ISO-8601 layout of log timestamps (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t as a log timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// LogEntry is a committed session record. Timestamp identifies it.
type LogEntry struct {
	Emotions      []catalog.Emotion `json:"emotions"`
	Intensity     int               `json:"intensity"`
	BodyScan      *BodyScan         `json:"bodyScan"`
	Understanding *Understanding    `json:"understanding"`
	Expressing    *Expressing       `json:"expressing"`
	Regulating    *Regulating       `json:"regulating"`
	PostMood      string            `json:"postMood"`
	Timestamp     string            `json:"timestamp"`
	IsFullFlow    bool              `json:"isFullFlow,omitempty"`
}

// PrimaryEmotion returns the first labelled emotion.
func (e LogEntry) PrimaryEmotion() (catalog.Emotion, bool) {
	if len(e.Emotions) == 0 {
		return catalog.Emotion{}, false
	}
	return e.Emotions[0], true
}

// HasFullRuler reports whether understanding, expressing and regulating were all recorded.
func (e LogEntry) HasFullRuler() bool {
	return e.Understanding != nil && e.Expressing != nil && e.Regulating != nil
}

// Time parses the entry timestamp.
func (e LogEntry) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", e.Timestamp, err)
	}
	return t, nil
}

type logEntryAlias LogEntry

// logEntryWire adds the single "emotion" field written by older clients.
type logEntryWire struct {
	logEntryAlias
	Emotion *catalog.Emotion `json:"emotion,omitempty"`
}

// MarshalJSON writes the primary emotion alongside the full list so older
// readers keep working.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	w := logEntryWire{logEntryAlias: logEntryAlias(e)}
	if primary, ok := e.PrimaryEmotion(); ok {
		w.Emotion = &primary
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both the list form and the legacy single-emotion form.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var w logEntryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = LogEntry(w.logEntryAlias)
	if len(e.Emotions) == 0 && w.Emotion != nil {
		e.Emotions = []catalog.Emotion{*w.Emotion}
	}
	return nil
}
