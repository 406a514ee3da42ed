// Package flow drives one RULER check-in from quadrant selection to summary.
//
// A Controller owns the current draft and the only timer of the flow (the
// centering pause). Every state change is saved to the Store so an
// interrupted session can be resumed; completing a session commits a log
// entry and clears the draft in one Store call.
package flow

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// DefaultCenteringDelay is the pause between the mood meter and the body scan.
const DefaultCenteringDelay = 1500 * time.Millisecond

// Errors returned by Controller actions. State is unchanged whenever one is returned.
var (
	ErrInvalidTransition = errors.New("action not allowed in current step")
	ErrMissingPayload    = errors.New("missing required data")
	ErrUnknownSelection  = errors.New("unknown selection")
	ErrResumePending     = errors.New("resume prompt pending")
	ErrClosed            = errors.New("controller is closed")
)

// Store is the persistence the controller needs.
// *storage.Repository implements it.
type Store interface {
	GetDraft(ctx context.Context) *ruler.Draft
	SaveDraft(ctx context.Context, d ruler.Draft) error
	ClearDraft(ctx context.Context) error
	Commit(ctx context.Context, entry ruler.LogEntry) error
}

// Timer is a cancellable pending call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules with time.AfterFunc.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is a snapshot of the controller.
type State struct {
	Draft            ruler.Draft     `json:"draft"`
	ShowResumePrompt bool            `json:"show_resume_prompt"`
	PendingStep      string          `json:"pending_step,omitempty"`
	ProgressIndex    int             `json:"progress_index"`
	CanUpgrade       bool            `json:"can_upgrade"`
	CanGoBack        bool            `json:"can_go_back"`
	LastEntry        *ruler.LogEntry `json:"last_entry,omitempty"`
}

// Step is shorthand for s.Draft.Step.
func (s State) Step() ruler.Step {
	return s.Draft.Step
}

var backTargets = map[ruler.Step]ruler.Step{
	ruler.StepBodyScan:      ruler.StepRecognizing,
	ruler.StepLabeling:      ruler.StepBodyScan,
	ruler.StepUnderstanding: ruler.StepLabeling,
	ruler.StepExpressing:    ruler.StepUnderstanding,
	ruler.StepRegulating:    ruler.StepExpressing,
	ruler.StepNeuroCheck:    ruler.StepRegulating,
}

// BackTarget returns the step Back moves to from s.
func BackTarget(s ruler.Step) (ruler.Step, bool) {
	t, ok := backTargets[s]
	return t, ok
}
