package insight

import (
	"context"
	"time"
)

// PhysicalData is the body context sent along with a check-in.
type PhysicalData struct {
	SleepHours           float64 `json:"sleepHours"`
	Steps                int     `json:"steps"`
	HeartRateVariability int     `json:"heartRateVariability,omitempty"`
}

// PhysicalSource supplies today's physical data.
type PhysicalSource interface {
	DailyStats(ctx context.Context) (PhysicalData, error)
}

// SimulatedSource returns a fixed short-sleep day after Delay. It stands in
// for a wearable integration.
type SimulatedSource struct {
	Delay time.Duration
}

// DailyStats implements PhysicalSource.
func (s SimulatedSource) DailyStats(ctx context.Context) (PhysicalData, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return PhysicalData{}, ctx.Err()
		}
	}
	return PhysicalData{SleepHours: 5.5, Steps: 3200, HeartRateVariability: 45}, nil
}

// Thresholds below which the body is flagged as a likely contributor.
const (
	MinSleepHours = 6
	MinSteps      = 3000
)

// Correlate returns a hint linking d to the user's mood, or "" if nothing
// stands out. Sleep is checked before activity.
func Correlate(d PhysicalData) string {
	if d.SleepHours < MinSleepHours {
		return "昨晚睡眠不足 6 小時，這可能會降低你的情緒調節能力及抗壓力。"
	}
	if d.Steps < MinSteps {
		return "今日體力活動較少，適度的運動或許能幫助改善低落或焦慮感。"
	}
	return ""
}
