package scrub

import (
	"regexp"
	"sort"
	"strings"
)

// Scrubber redacts personal identifiers from text.
type Scrubber interface {
	// Scrub returns text with every match replaced.
	Scrub(text string) *Result
	// Enabled reports whether any rule runs.
	Enabled() bool
}

// Result is the outcome of one Scrub call. It never carries matched text.
type Result struct {
	Scrubbed string         `json:"scrubbed"`
	Findings []Finding      `json:"findings,omitempty"`
	ByRule   map[string]int `json:"by_rule,omitempty"`
}

// Finding locates one redacted identifier in the input.
type Finding struct {
	RuleID string `json:"rule_id"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Count is the number of findings.
func (r *Result) Count() int {
	return len(r.Findings)
}

type scrubber struct {
	cfg *Config
}

// New validates cfg and returns a Scrubber. A nil cfg uses DefaultConfig.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &scrubber{cfg: cfg}, nil
}

func (s *scrubber) Enabled() bool {
	return s.cfg.Enabled && len(s.cfg.compiledRules) > 0
}

type span struct{ start, end int }

func (s *scrubber) Scrub(text string) *Result {
	res := &Result{Scrubbed: text, ByRule: map[string]int{}}
	if !s.cfg.Enabled || text == "" {
		return res
	}

	var spans []span
	for _, rule := range s.cfg.compiledRules {
		if !keywordPresent(rule.keywords, text) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(text, -1) {
			if s.allowed(text[m[0]:m[1]]) {
				continue
			}
			res.Findings = append(res.Findings, Finding{RuleID: rule.ID, Start: m[0], End: m[1]})
			res.ByRule[rule.ID]++
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return res
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, sp := range merge(spans) {
		b.WriteString(text[pos:sp.start])
		b.WriteString(s.cfg.Replacement)
		pos = sp.end
	}
	b.WriteString(text[pos:])
	res.Scrubbed = b.String()
	return res
}

func keywordPresent(keywords []*regexp.Regexp, text string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if kw.MatchString(text) {
			return true
		}
	}
	return false
}

func (s *scrubber) allowed(match string) bool {
	for _, re := range s.cfg.compiledAllow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

// merge sorts spans and joins overlapping or touching ones.
func merge(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &out[len(out)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

// Nop passes text through unchanged.
type Nop struct{}

// Scrub implements Scrubber.
func (Nop) Scrub(text string) *Result {
	return &Result{Scrubbed: text, ByRule: map[string]int{}}
}

// Enabled implements Scrubber.
func (Nop) Enabled() bool { return false }

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = Nop{}
)
