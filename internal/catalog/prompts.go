package catalog

// Expression prompts, in display order. FreeWriting is the default.
const FreeWriting = "自由書寫"

var expressionPrompts = []string{
	"我想要...",
	"我需要...",
	"我感謝...",
	"我感到抱歉...",
	"我為自己感到...",
	FreeWriting,
}

// ExpressionPrompts returns the sentence starters offered at the expressing step.
func ExpressionPrompts() []string {
	return append([]string(nil), expressionPrompts...)
}

// ContextOptions are the quick picks offered for the understanding step.
// Free text is accepted as well.
type ContextOptions struct {
	What  []string `json:"what"`
	Who   []string `json:"who"`
	Where []string `json:"where"`
}

// UnderstandingOptions returns the default what/who/where choices.
func UnderstandingOptions() ContextOptions {
	return ContextOptions{
		What:  []string{"工作", "學習", "社交", "放鬆", "運動", "用餐", "通勤", "家務"},
		Who:   []string{"獨自一人", "家人", "朋友", "伴侶", "同事", "陌生人"},
		Where: []string{"家中", "辦公室", "戶外", "餐廳", "學校", "公共交通"},
	}
}

// IsNeed reports whether s is the id or label of a known need.
func IsNeed(s string) bool {
	for _, n := range needs {
		if n.ID == s || n.Label == s {
			return true
		}
	}
	return false
}

// IsBodyLocation reports whether id names a body-scan region.
func IsBodyLocation(id string) bool {
	for _, l := range bodyLocations {
		if l.ID == id {
			return true
		}
	}
	return false
}

// IsSensation reports whether id is offered for any of the quadrants.
func IsSensation(id string, quadrants ...Quadrant) bool {
	for _, q := range quadrants {
		for _, s := range sensationsByQuadrant[q] {
			if s.ID == id {
				return true
			}
		}
	}
	return false
}
