// Package insight asks a chat-completions model for a short reflection on
// a check-in.
//
// The service is advisory. Analyze never fails: any problem (missing
// configuration, transport error, bad status, unparsable reply) yields a
// static insight for the entry's quadrant with Result.Fallback set.
package insight

import (
	"github.com/fyrsmithlabs/imxin/internal/catalog"
)

// Insight is the model's reflection.
type Insight struct {
	Summary            string   `json:"summary"`
	UnderlyingPatterns []string `json:"underlyingPatterns"`
	SuggestedAction    string   `json:"suggestedAction"`
	EmpatheticQuote    string   `json:"empatheticQuote"`
	MemoryTrigger      string   `json:"memoryTrigger,omitempty"`
	PhysicalContext    string   `json:"physicalContext,omitempty"`
	ColorTheory        string   `json:"colorTheory,omitempty"`
}

// Result wraps an Insight with how it was obtained.
type Result struct {
	Insight  Insight `json:"insight"`
	Fallback bool    `json:"fallback"`
	// Reason says why the fallback was used. It never contains journal text.
	Reason string `json:"reason,omitempty"`
	// Correlation is the physical-data hint, when one applies.
	Correlation string `json:"correlation,omitempty"`
}

var fallbackInsights = map[catalog.Quadrant]Insight{
	catalog.QuadrantRed: {
		Summary:            "（AI 連線未設定）你的能量水平較高且伴隨不適。這通常是『戰或逃』反應的體現。",
		UnderlyingPatterns: []string{"急性壓力", "界限侵犯"},
		SuggestedAction:    "進行 5-4-3-2-1 五感接地的練習，將注意力拉回當下。",
		EmpatheticQuote:    "「在刺激與反應之間，有一個空間；在那個空間裡，我們有選擇權。」",
	},
}

var defaultInsight = Insight{
	Summary:            "（AI 連線未設定）你似乎正在經歷一段情緒波折。這是一個自然的過程，給自己一點空間去感受。",
	UnderlyingPatterns: []string{"情境過載", "尋求認同"},
	SuggestedAction:    "嘗試將當前的任務分解為細小的步驟，先完成最簡單的一項。",
	EmpatheticQuote:    "「情緒不是障礙，而是內在智慧的信使。」",
}

// Fallback returns the static insight for q.
func Fallback(q catalog.Quadrant) Insight {
	in, ok := fallbackInsights[q]
	if !ok {
		in = defaultInsight
	}
	in.UnderlyingPatterns = append([]string(nil), in.UnderlyingPatterns...)
	return in
}

// EmptyHistorySummary is returned by SummarizeHistory for no logs.
const EmptyHistorySummary = "尚無數據可總結。"

const historySummary = "在過去的記錄中，你展現了持續的自我覺察力。你似乎在環境變動時更能連結到內在感受。"

// SummarizeHistory returns a narrative over n logged sessions.
// TODO: ask the model once weekly summaries have a prompt of their own.
func SummarizeHistory(n int) string {
	if n == 0 {
		return EmptyHistorySummary
	}
	return historySummary
}
