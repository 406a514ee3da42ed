// Package ruler defines the session model of the RULER check-in: the closed
// set of wizard steps, the in-progress draft and the committed log entry.
package ruler

import "fmt"

// Step is a wizard step. The zero value is the initial step.
type Step uint8

const (
	StepRecognizing Step = iota
	StepCentering
	StepBodyScan
	StepLabeling
	StepUnderstanding
	StepExpressing
	StepRegulating
	StepNeuroCheck
	StepSummary
)

var stepNames = [...]string{
	StepRecognizing:   "recognizing",
	StepCentering:     "centering",
	StepBodyScan:      "bodyScan",
	StepLabeling:      "labeling",
	StepUnderstanding: "understanding",
	StepExpressing:    "expressing",
	StepRegulating:    "regulating",
	StepNeuroCheck:    "neuroCheck",
	StepSummary:       "summary",
}

// Steps lists every step in flow order.
func Steps() []Step {
	out := make([]Step, len(stepNames))
	for i := range stepNames {
		out[i] = Step(i)
	}
	return out
}

// Valid reports whether s is a defined step.
func (s Step) Valid() bool {
	return int(s) < len(stepNames)
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Step(%d)", uint8(s))
	}
	return stepNames[s]
}

// ParseStep resolves a step name. Unknown names are an error.
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step %d", uint8(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ProgressStep is one letter of the RULER progress indicator.
type ProgressStep struct {
	Step   Step   `json:"key"`
	Label  string `json:"label"`
	Letter string `json:"letter"`
}

// Progress is the five-letter RULER indicator shown above the flow.
var Progress = []ProgressStep{
	{StepRecognizing, "辨別", "R"},
	{StepLabeling, "標記", "L"},
	{StepUnderstanding, "理解", "U"},
	{StepExpressing, "表達", "E"},
	{StepRegulating, "調節", "R"},
}

// ProgressIndex returns the position of s in Progress, or -1 for steps that
// have no letter of their own (centering, body scan, neuro check, summary).
func ProgressIndex(s Step) int {
	for i, p := range Progress {
		if p.Step == s {
			return i
		}
	}
	return -1
}
