package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// ErrLogNotFound is returned when no entry has the given timestamp.
var ErrLogNotFound = errors.New("log entry not found")

func isNotFound(err error) bool {
	return errors.Is(err, ErrLogNotFound)
}

// quarantineKey receives the raw log array when it cannot be decoded, so a
// later write does not destroy it.
const quarantineKey = KeyLogs + ".corrupt"

// Repository provides typed access to the draft and the log collection.
// Reads fail open: missing, corrupt or unreadable values come back empty.
type Repository struct {
	kv      KV
	logger  *logging.Logger
	metrics *Metrics

	// mu serialises read-modify-write cycles on the log array.
	mu sync.Mutex
}

// NewRepository wraps kv. metrics may be nil.
func NewRepository(kv KV, logger *logging.Logger, metrics *Metrics) *Repository {
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Repository{kv: kv, logger: logger.Named("storage"), metrics: metrics}
}

// Close closes the backend.
func (r *Repository) Close() error {
	return r.kv.Close()
}

// GetLogs returns the committed entries, newest first.
func (r *Repository) GetLogs(ctx context.Context) []ruler.LogEntry {
	logs, _ := r.readLogs(ctx, r.kv)
	r.metrics.LogsStored.Set(float64(len(logs)))
	return logs
}

// readLogs decodes the log array from b. raw holds the stored bytes when
// they exist but could not be decoded.
func (r *Repository) readLogs(ctx context.Context, b Bucket) (logs []ruler.LogEntry, raw []byte) {
	data, found, err := b.Get(ctx, KeyLogs)
	if err != nil {
		r.logger.Warn(ctx, "read logs failed", zap.Error(err))
		return []ruler.LogEntry{}, nil
	}
	if !found {
		return []ruler.LogEntry{}, nil
	}
	if err := json.Unmarshal(data, &logs); err != nil {
		r.metrics.CorruptReads.WithLabelValues(KeyLogs).Inc()
		r.logger.Warn(ctx, "stored logs are corrupt, treating as empty",
			zap.Int("bytes", len(data)), zap.Error(err))
		return []ruler.LogEntry{}, data
	}
	if logs == nil {
		logs = []ruler.LogEntry{}
	}
	return logs, nil
}

func (r *Repository) writeLogs(ctx context.Context, b Bucket, logs []ruler.LogEntry, corrupt []byte) error {
	if corrupt != nil {
		if err := b.Set(ctx, quarantineKey, corrupt); err != nil {
			return fmt.Errorf("quarantine corrupt logs: %w", err)
		}
		r.logger.Warn(ctx, "corrupt logs moved aside", zap.String("key", quarantineKey))
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encode logs: %w", err)
	}
	if err := b.Set(ctx, KeyLogs, data); err != nil {
		return fmt.Errorf("write logs: %w", err)
	}
	return nil
}

func prepend(logs []ruler.LogEntry, entry ruler.LogEntry) []ruler.LogEntry {
	return append([]ruler.LogEntry{entry}, logs...)
}

// SaveLog prepends entry to the collection.
func (r *Repository) SaveLog(ctx context.Context, entry ruler.LogEntry) (err error) {
	defer func() { r.metrics.record("save_log", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	logs, corrupt := r.readLogs(ctx, r.kv)
	logs = prepend(logs, entry)
	if err := r.writeLogs(ctx, r.kv, logs, corrupt); err != nil {
		return err
	}
	r.metrics.LogsStored.Set(float64(len(logs)))
	return nil
}

// GetDraft returns the persisted draft, or nil if there is none or it
// cannot be decoded.
func (r *Repository) GetDraft(ctx context.Context) *ruler.Draft {
	data, found, err := r.kv.Get(ctx, KeyDraft)
	if err != nil {
		r.logger.Warn(ctx, "read draft failed", zap.Error(err))
		return nil
	}
	if !found {
		r.metrics.setDraft(false)
		return nil
	}
	var d ruler.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		r.metrics.CorruptReads.WithLabelValues(KeyDraft).Inc()
		r.logger.Warn(ctx, "stored draft is corrupt, ignoring", zap.Int("bytes", len(data)), zap.Error(err))
		return nil
	}
	r.metrics.setDraft(true)
	return &d
}

// SaveDraft overwrites the draft.
func (r *Repository) SaveDraft(ctx context.Context, d ruler.Draft) (err error) {
	defer func() { r.metrics.record("save_draft", err) }()

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := r.kv.Set(ctx, KeyDraft, data); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	r.metrics.setDraft(true)
	return nil
}

// ClearDraft removes the draft. Clearing a missing draft is not an error.
func (r *Repository) ClearDraft(ctx context.Context) (err error) {
	defer func() { r.metrics.record("clear_draft", err) }()

	if err := r.kv.Remove(ctx, KeyDraft); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	r.metrics.setDraft(false)
	return nil
}

// Commit appends entry and clears the draft. On transactional backends both
// writes land together. Otherwise the log is written first, and once it is
// written the commit stands: a draft that cannot be cleared is left behind
// with a warning rather than failing, so a retry cannot log the session twice.
func (r *Repository) Commit(ctx context.Context, entry ruler.LogEntry) (err error) {
	defer func() { r.metrics.record("commit", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		count      int
		draftStale bool
	)
	apply := func(b Bucket, strict bool) error {
		logs, corrupt := r.readLogs(ctx, b)
		logs = prepend(logs, entry)
		if err := r.writeLogs(ctx, b, logs, corrupt); err != nil {
			return err
		}
		count = len(logs)
		if err := b.Remove(ctx, KeyDraft); err != nil {
			if strict {
				return fmt.Errorf("clear draft: %w", err)
			}
			draftStale = true
			r.logger.Warn(ctx, "draft left behind after commit", zap.Error(err))
		}
		return nil
	}

	if tx, ok := r.kv.(Transactional); ok {
		err = tx.Update(ctx, func(b Bucket) error { return apply(b, true) })
	} else {
		err = apply(r.kv, false)
	}
	if err != nil {
		return err
	}

	r.metrics.LogsStored.Set(float64(count))
	r.metrics.setDraft(draftStale)
	r.logger.Debug(ctx, "session committed",
		zap.String("timestamp", entry.Timestamp), zap.Int("logs", count))
	return nil
}

// mutate applies fn to the entry with timestamp ts and rewrites the collection.
func (r *Repository) mutate(ctx context.Context, ts string, fn func(logs []ruler.LogEntry, i int) []ruler.LogEntry) ([]ruler.LogEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs, _ := r.readLogs(ctx, r.kv)
	for i := range logs {
		if logs[i].Timestamp == ts {
			logs = fn(logs, i)
			if err := r.writeLogs(ctx, r.kv, logs, nil); err != nil {
				return nil, 0, err
			}
			r.metrics.LogsStored.Set(float64(len(logs)))
			return logs, i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrLogNotFound, ts)
}

// DeleteLog removes the entry with timestamp ts, keeping the order of the rest.
func (r *Repository) DeleteLog(ctx context.Context, ts string) (err error) {
	defer func() { r.metrics.record("delete_log", err) }()

	_, _, err = r.mutate(ctx, ts, func(logs []ruler.LogEntry, i int) []ruler.LogEntry {
		return append(logs[:i], logs[i+1:]...)
	})
	return err
}

// UpdateExpression replaces the expression text of the entry with timestamp ts.
func (r *Repository) UpdateExpression(ctx context.Context, ts, text string) (_ ruler.LogEntry, err error) {
	defer func() { r.metrics.record("update_expression", err) }()

	logs, i, err := r.mutate(ctx, ts, func(logs []ruler.LogEntry, i int) []ruler.LogEntry {
		e := logs[i].Expressing
		if e == nil {
			e = &ruler.Expressing{Mode: ruler.ModeText}
		} else {
			copied := *e
			e = &copied
		}
		e.Expression = text
		logs[i].Expressing = e
		return logs
	})
	if err != nil {
		return ruler.LogEntry{}, err
	}
	r.logger.Debug(ctx, "expression edited", zap.String("timestamp", ts), logging.TextLen("expression", text))
	return logs[i], nil
}
