package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// Commit modes.
const (
	ModeQuick = "quick"
	ModeFull  = "full"
)

// Config configures a Controller. Zero fields take defaults.
type Config struct {
	CenteringDelay time.Duration
	Scheduler      Scheduler
	Now            func() time.Time
	NewSessionID   func() string
	Logger         *logging.Logger
}

// Controller is the check-in state machine. It is safe for concurrent use.
type Controller struct {
	store  Store
	logger *logging.Logger
	ins    instruments
	sched  Scheduler
	delay  time.Duration
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	draft     ruler.Draft
	pending   *ruler.Draft // draft offered by the resume prompt
	lastEntry *ruler.LogEntry
	upgrade   bool // a quick commit may still be extended
	timer     Timer
	gen       uint64 // invalidates timers that fire after being superseded
	lastTS    time.Time
	closed    bool
}

// New creates a controller and looks for a resumable draft. A draft past
// the first step is held back until ResumeDraft or DeclineResume.
func New(ctx context.Context, store Store, cfg Config) (*Controller, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.CenteringDelay <= 0 {
		cfg.CenteringDelay = DefaultCenteringDelay
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewSessionID == nil {
		cfg.NewSessionID = uuid.NewString
	}

	logger := cfg.Logger.Named("flow")
	c := &Controller{
		store:  store,
		logger: logger,
		ins:    newInstruments(ctx, logger),
		sched:  cfg.Scheduler,
		delay:  cfg.CenteringDelay,
		now:    cfg.Now,
		newID:  cfg.NewSessionID,
	}
	c.draft = ruler.NewDraft(c.newID())

	if d := store.GetDraft(ctx); d != nil && d.Step != ruler.StepRecognizing {
		held := d.Clone()
		c.pending = &held
		c.logger.Info(logging.WithSessionID(ctx, held.SessionID), "resumable draft found",
			zap.Stringer("step", held.Step))
	}
	return c, nil
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := State{
		Draft:            c.draft.Clone(),
		ShowResumePrompt: c.pending != nil,
		ProgressIndex:    ruler.ProgressIndex(c.draft.Step),
		CanUpgrade:       c.upgrade && c.draft.Step == ruler.StepSummary,
	}
	if c.pending != nil {
		s.PendingStep = c.pending.Step.String()
	} else {
		_, s.CanGoBack = BackTarget(c.draft.Step)
	}
	if c.lastEntry != nil {
		e := *c.lastEntry
		s.LastEntry = &e
	}
	return s
}

func (c *Controller) guard(op string, allowed ...ruler.Step) error {
	if c.closed {
		return ErrClosed
	}
	if c.pending != nil {
		return ErrResumePending
	}
	for _, s := range allowed {
		if c.draft.Step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, op, c.draft.Step)
}

func (c *Controller) sessionCtx(ctx context.Context) context.Context {
	return logging.WithSessionID(ctx, c.draft.SessionID)
}

// apply installs next and persists it. Draft writes only serve resumption,
// so a failed write is logged and the in-memory state still advances.
func (c *Controller) apply(ctx context.Context, op string, next ruler.Draft) {
	from := c.draft.Step
	c.draft = next
	ctx = c.sessionCtx(ctx)

	if from != next.Step {
		c.ins.transition(ctx, from, next.Step)
		c.logger.Debug(ctx, "step changed",
			zap.String("op", op), zap.Stringer("from", from), zap.Stringer("to", next.Step))
	} else {
		c.logger.Trace(ctx, "draft updated", zap.String("op", op), zap.Stringer("step", next.Step))
	}

	if err := c.store.SaveDraft(ctx, c.draft); err != nil {
		c.logger.Warn(ctx, "failed to save draft", zap.String("op", op), zap.Error(err))
	}
}

func (c *Controller) armTimer() {
	c.stopTimer()
	gen := c.gen
	c.timer = c.sched.AfterFunc(c.delay, func() { c.centered(gen) })
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) centered(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen || c.draft.Step != ruler.StepCentering {
		return
	}
	c.timer = nil
	next := c.draft.Clone()
	next.Step = ruler.StepBodyScan
	c.apply(context.Background(), "centered", next)
}

// SelectQuadrants replaces the quadrant selection. Emotions outside the new
// quadrants are dropped from the selection.
func (c *Controller) SelectQuadrants(ctx context.Context, qs []catalog.Quadrant) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("select quadrants", ruler.StepRecognizing); err != nil {
		return c.snapshot(), err
	}
	sel, err := normalizeQuadrants(qs)
	if err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	next.SelectedQuadrants = sel
	next.SelectedEmotions = keepInQuadrants(next.SelectedEmotions, sel)
	c.apply(ctx, "select quadrants", next)
	return c.snapshot(), nil
}

// SetIntensity sets the emotion intensity, clamped to [1, 10].
func (c *Controller) SetIntensity(ctx context.Context, n int) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("set intensity", ruler.StepRecognizing, ruler.StepLabeling); err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	next.EmotionIntensity = ruler.ClampIntensity(n)
	c.apply(ctx, "set intensity", next)
	return c.snapshot(), nil
}

// SetFullFlow chooses between the quick path (commit after labeling) and
// the full RULER path.
func (c *Controller) SetFullFlow(ctx context.Context, full bool) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("set full flow",
		ruler.StepRecognizing, ruler.StepCentering, ruler.StepBodyScan, ruler.StepLabeling); err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	next.IsFullFlow = full
	c.apply(ctx, "set full flow", next)
	return c.snapshot(), nil
}

// CompleteMood finishes the mood meter and starts the centering pause.
// Empty qs keeps the current selection; intensity 0 keeps the current value.
func (c *Controller) CompleteMood(ctx context.Context, qs []catalog.Quadrant, intensity int) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete mood", ruler.StepRecognizing); err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	if len(qs) > 0 {
		sel, err := normalizeQuadrants(qs)
		if err != nil {
			return c.snapshot(), err
		}
		next.SelectedQuadrants = sel
		next.SelectedEmotions = keepInQuadrants(next.SelectedEmotions, sel)
	}
	if len(next.SelectedQuadrants) == 0 {
		return c.snapshot(), fmt.Errorf("%w: at least one quadrant", ErrMissingPayload)
	}
	if intensity != 0 {
		next.EmotionIntensity = ruler.ClampIntensity(intensity)
	}
	next.Step = ruler.StepCentering
	c.apply(ctx, "complete mood", next)
	c.armTimer()
	return c.snapshot(), nil
}

// CompleteBodyScan records where the feeling sits and moves to labeling.
func (c *Controller) CompleteBodyScan(ctx context.Context, bs *ruler.BodyScan) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete body scan", ruler.StepBodyScan); err != nil {
		return c.snapshot(), err
	}
	if !bs.Complete() {
		return c.snapshot(), fmt.Errorf("%w: location and sensation", ErrMissingPayload)
	}
	if !catalog.IsBodyLocation(bs.Location) {
		return c.snapshot(), fmt.Errorf("%w: body location %q", ErrUnknownSelection, bs.Location)
	}
	if !catalog.IsSensation(bs.Sensation, c.draft.SelectedQuadrants...) {
		return c.snapshot(), fmt.Errorf("%w: sensation %q", ErrUnknownSelection, bs.Sensation)
	}
	next := c.draft.Clone()
	scan := *bs
	next.BodyScanData = &scan
	next.Step = ruler.StepLabeling
	c.apply(ctx, "complete body scan", next)
	return c.snapshot(), nil
}

// SkipBodyScan moves to labeling without a body scan.
func (c *Controller) SkipBodyScan(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("skip body scan", ruler.StepBodyScan); err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	next.BodyScanData = nil
	next.Step = ruler.StepLabeling
	c.apply(ctx, "skip body scan", next)
	return c.snapshot(), nil
}

// SelectEmotions replaces the emotion selection.
func (c *Controller) SelectEmotions(ctx context.Context, ids []string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("select emotions", ruler.StepLabeling); err != nil {
		return c.snapshot(), err
	}
	sel, err := resolveEmotions(ids, c.draft.SelectedQuadrants)
	if err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	next.SelectedEmotions = sel
	c.apply(ctx, "select emotions", next)
	return c.snapshot(), nil
}

// CompleteLabeling finishes labeling. A nil ids keeps the current
// selection. In quick mode the session is committed and the flow ends at
// summary; in full mode it continues to understanding.
func (c *Controller) CompleteLabeling(ctx context.Context, ids []string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete labeling", ruler.StepLabeling); err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	if ids != nil {
		sel, err := resolveEmotions(ids, next.SelectedQuadrants)
		if err != nil {
			return c.snapshot(), err
		}
		next.SelectedEmotions = sel
	}
	if len(next.SelectedEmotions) == 0 {
		return c.snapshot(), fmt.Errorf("%w: at least one emotion", ErrMissingPayload)
	}

	if next.IsFullFlow {
		next.Step = ruler.StepUnderstanding
		c.apply(ctx, "complete labeling", next)
		return c.snapshot(), nil
	}

	if err := c.commit(ctx, ModeQuick, next); err != nil {
		return c.snapshot(), err
	}
	c.upgrade = true
	return c.snapshot(), nil
}

// CompleteUnderstanding records the context of the feeling.
func (c *Controller) CompleteUnderstanding(ctx context.Context, u *ruler.Understanding) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete understanding", ruler.StepUnderstanding); err != nil {
		return c.snapshot(), err
	}
	if !u.Complete() {
		return c.snapshot(), fmt.Errorf("%w: what, who and where", ErrMissingPayload)
	}
	if u.Need != nil && !catalog.IsNeed(*u.Need) {
		return c.snapshot(), fmt.Errorf("%w: need %q", ErrUnknownSelection, *u.Need)
	}
	next := c.draft.Clone()
	next.UnderstandingData = cloneUnderstanding(u)
	next.Step = ruler.StepExpressing
	c.apply(ctx, "complete understanding", next)
	return c.snapshot(), nil
}

// CompleteExpressing records the expression. The text may be empty; a nil
// payload, empty prompt or empty mode take their defaults.
func (c *Controller) CompleteExpressing(ctx context.Context, e *ruler.Expressing) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete expressing", ruler.StepExpressing); err != nil {
		return c.snapshot(), err
	}
	expr := ruler.Expressing{}
	if e != nil {
		expr = *e
	}
	if expr.Mode == "" {
		expr.Mode = ruler.ModeText
	}
	if expr.Mode != ruler.ModeText && expr.Mode != ruler.ModeVoice {
		return c.snapshot(), fmt.Errorf("%w: mode %q", ErrUnknownSelection, expr.Mode)
	}
	if expr.Prompt == "" {
		expr.Prompt = catalog.FreeWriting
	}
	next := c.draft.Clone()
	next.ExpressingData = &expr
	next.Step = ruler.StepRegulating
	c.apply(ctx, "complete expressing", next)
	c.logger.Debug(c.sessionCtx(ctx), "expression recorded",
		zap.String("mode", expr.Mode), logging.TextLen("expression", expr.Expression))
	return c.snapshot(), nil
}

// CompleteRegulating records the chosen strategies. Every title must be in
// the strategy catalog; an empty choice is allowed.
func (c *Controller) CompleteRegulating(ctx context.Context, r *ruler.Regulating) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete regulating", ruler.StepRegulating); err != nil {
		return c.snapshot(), err
	}
	if r == nil {
		return c.snapshot(), fmt.Errorf("%w: strategies", ErrMissingPayload)
	}
	titles := make([]string, 0, len(r.SelectedStrategies))
	seen := make(map[string]bool, len(r.SelectedStrategies))
	for _, t := range r.SelectedStrategies {
		if !catalog.IsStrategy(t) {
			return c.snapshot(), fmt.Errorf("%w: strategy %q", ErrUnknownSelection, t)
		}
		if !seen[t] {
			seen[t] = true
			titles = append(titles, t)
		}
	}
	next := c.draft.Clone()
	next.RegulatingData = &ruler.Regulating{SelectedStrategies: titles}
	next.Step = ruler.StepNeuroCheck
	c.apply(ctx, "complete regulating", next)
	return c.snapshot(), nil
}

// SetPostMood records the neuro-check answer without completing.
func (c *Controller) SetPostMood(ctx context.Context, mood string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("set post mood", ruler.StepNeuroCheck); err != nil {
		return c.snapshot(), err
	}
	if !catalog.IsMoodOption(mood) {
		return c.snapshot(), fmt.Errorf("%w: mood %q", ErrUnknownSelection, mood)
	}
	next := c.draft.Clone()
	next.PostRegulationMood = mood
	c.apply(ctx, "set post mood", next)
	return c.snapshot(), nil
}

// CompleteNeuroCheck commits the full session. An empty mood uses the one
// already recorded; a mood is required either way.
func (c *Controller) CompleteNeuroCheck(ctx context.Context, mood string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("complete neuro check", ruler.StepNeuroCheck); err != nil {
		return c.snapshot(), err
	}
	next := c.draft.Clone()
	if mood != "" {
		next.PostRegulationMood = mood
	}
	if next.PostRegulationMood == "" {
		return c.snapshot(), fmt.Errorf("%w: post-regulation mood", ErrMissingPayload)
	}
	if !catalog.IsMoodOption(next.PostRegulationMood) {
		return c.snapshot(), fmt.Errorf("%w: mood %q", ErrUnknownSelection, next.PostRegulationMood)
	}
	if err := c.commit(ctx, ModeFull, next); err != nil {
		return c.snapshot(), err
	}
	c.upgrade = false
	return c.snapshot(), nil
}

// Back returns to the previous step, keeping everything entered so far.
func (c *Controller) Back(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var from []ruler.Step
	for s := range backTargets {
		from = append(from, s)
	}
	if err := c.guard("back", from...); err != nil {
		return c.snapshot(), err
	}
	target, _ := BackTarget(c.draft.Step)
	next := c.draft.Clone()
	next.Step = target
	c.apply(ctx, "back", next)
	return c.snapshot(), nil
}

// UpgradeToFullFlow continues a quick session into the full path. The
// emotions stay selected; completing the neuro check writes a second entry.
func (c *Controller) UpgradeToFullFlow(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard("upgrade", ruler.StepSummary); err != nil {
		return c.snapshot(), err
	}
	if !c.upgrade {
		return c.snapshot(), fmt.Errorf("%w: upgrade after a full session", ErrInvalidTransition)
	}
	next := c.draft.Clone()
	next.IsFullFlow = true
	next.Step = ruler.StepUnderstanding
	c.upgrade = false
	c.apply(ctx, "upgrade", next)
	return c.snapshot(), nil
}

// Reset abandons the session: the timer is cancelled, the draft cleared
// and a new session starts at recognizing. It also dismisses a pending
// resume prompt.
func (c *Controller) Reset(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshot(), ErrClosed
	}
	c.reset(ctx, "reset")
	return c.snapshot(), nil
}

func (c *Controller) reset(ctx context.Context, op string) {
	c.stopTimer()
	if err := c.store.ClearDraft(c.sessionCtx(ctx)); err != nil {
		c.logger.Warn(c.sessionCtx(ctx), "failed to clear draft", zap.String("op", op), zap.Error(err))
	}
	from := c.draft.Step
	c.pending = nil
	c.lastEntry = nil
	c.upgrade = false
	c.draft = ruler.NewDraft(c.newID())
	if from != ruler.StepRecognizing {
		c.ins.transition(ctx, from, ruler.StepRecognizing)
	}
	c.logger.Debug(c.sessionCtx(ctx), "session reset", zap.String("op", op), zap.Stringer("from", from))
}

// ResumeDraft restores the held draft. A draft saved during centering
// restarts the centering pause.
func (c *Controller) ResumeDraft(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshot(), ErrClosed
	}
	if c.pending == nil {
		return c.snapshot(), fmt.Errorf("%w: no draft to resume", ErrInvalidTransition)
	}
	d := *c.pending
	c.pending = nil
	if d.SessionID == "" {
		d.SessionID = c.newID()
	}
	d.EmotionIntensity = ruler.ClampIntensity(d.EmotionIntensity)
	c.draft = d
	c.logger.Info(c.sessionCtx(ctx), "draft resumed", zap.Stringer("step", d.Step))
	if d.Step == ruler.StepCentering {
		c.armTimer()
	}
	return c.snapshot(), nil
}

// DeclineResume discards the held draft and starts over.
func (c *Controller) DeclineResume(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshot(), ErrClosed
	}
	if c.pending == nil {
		return c.snapshot(), fmt.Errorf("%w: no draft to decline", ErrInvalidTransition)
	}
	c.reset(ctx, "decline resume")
	return c.snapshot(), nil
}

// Close cancels the centering timer. Later actions return ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimer()
	c.closed = true
	return nil
}

// commit writes the entry built from next and moves to summary. On failure
// nothing changes.
func (c *Controller) commit(ctx context.Context, mode string, next ruler.Draft) error {
	ctx = c.sessionCtx(ctx)
	ctx, span := c.ins.tracer.Start(ctx, "flow.commit")
	defer span.End()

	entry := c.buildEntry(next, mode == ModeFull)
	span.SetAttributes(attribute.String("mode", mode), attribute.Int("emotions", len(entry.Emotions)))

	if err := c.store.Commit(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, "commit failed", zap.String("mode", mode), zap.Error(err))
		return fmt.Errorf("commit session: %w", err)
	}
	c.lastTS, _ = entry.Time()

	from := c.draft.Step
	next.Step = ruler.StepSummary
	c.draft = next
	c.lastEntry = &entry

	c.ins.transition(ctx, from, ruler.StepSummary)
	c.ins.commit(ctx, mode)
	c.logger.Info(ctx, "session committed",
		zap.String("mode", mode),
		zap.String("timestamp", entry.Timestamp),
		zap.Int("emotions", len(entry.Emotions)),
		zap.Int("intensity", entry.Intensity),
	)
	return nil
}

// buildEntry synthesizes the log entry for d. Quick entries carry only
// emotions, intensity and body scan.
func (c *Controller) buildEntry(d ruler.Draft, full bool) ruler.LogEntry {
	d = d.Clone()
	e := ruler.LogEntry{
		Emotions:   d.SelectedEmotions,
		Intensity:  ruler.ClampIntensity(d.EmotionIntensity),
		BodyScan:   d.BodyScanData,
		Timestamp:  c.nextTimestamp(),
		IsFullFlow: full,
	}
	if full {
		e.Understanding = d.UnderstandingData
		e.Expressing = d.ExpressingData
		e.Regulating = d.RegulatingData
		e.PostMood = d.PostRegulationMood
	}
	return e
}

// nextTimestamp returns now at millisecond precision, bumped past the
// previous commit so timestamps stay unique.
func (c *Controller) nextTimestamp() string {
	ts := c.now().UTC().Truncate(time.Millisecond)
	if !ts.After(c.lastTS) {
		ts = c.lastTS.Add(time.Millisecond)
	}
	return ruler.FormatTimestamp(ts)
}
