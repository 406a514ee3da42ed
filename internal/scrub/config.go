// Package scrub removes personal identifiers from journal text before it
// leaves the process (insight requests, scrub endpoint).
package scrub

import (
	"fmt"
	"regexp"
)

// DefaultReplacement is substituted for each redacted span.
const DefaultReplacement = "[已隱藏]"

// Config configures a Scrubber.
type Config struct {
	Enabled     bool     `toml:"enabled"`
	Replacement string   `toml:"replacement"`
	Rules       []Rule   `toml:"rules"`
	AllowList   []string `toml:"allow_list"`

	compiledRules []compiledRule
	compiledAllow []*regexp.Regexp
}

// Rule detects one kind of identifier.
type Rule struct {
	ID          string `toml:"id"`
	Description string `toml:"description"`
	Pattern     string `toml:"pattern"`
	// Keywords, when set, must appear (case-insensitively) somewhere in the
	// text for the rule to run.
	Keywords []string `toml:"keywords"`
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// DefaultRules covers identifiers that commonly slip into a diary entry.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "email",
			Description: "E-mail address",
			Pattern:     `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
		},
		{
			ID:          "url-credentials",
			Description: "URL with embedded credentials",
			Pattern:     `[a-zA-Z][a-zA-Z0-9+.-]*://[^\s:/@]+:[^\s/@]+@[^\s]+`,
		},
		{
			ID:          "tw-national-id",
			Description: "Taiwan national identification number",
			Pattern:     `\b[A-Z][12]\d{8}\b`,
		},
		{
			ID:          "tw-mobile",
			Description: "Taiwan mobile number",
			Pattern:     `(?:\+886[-\s]?|\b0)9\d{2}[-\s]?\d{3}[-\s]?\d{3}\b`,
		},
		{
			ID:          "phone",
			Description: "International phone number",
			Pattern:     `\+\d{1,3}[-\s]?\(?\d{1,4}\)?(?:[-\s]?\d{2,4}){2,3}\b`,
		},
		{
			ID:          "card-number",
			Description: "Payment card number",
			Pattern:     `\b(?:\d{4}[-\s]?){3}\d{4}\b`,
		},
		{
			ID:          "api-key",
			Description: "API key or bearer token",
			Pattern:     `\b(?:sk|pk|rk)-[A-Za-z0-9_-]{16,}\b|(?i:bearer)\s+[A-Za-z0-9._~+/-]{16,}=*`,
		},
	}
}

// DefaultConfig returns an enabled config with DefaultRules.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Replacement: DefaultReplacement,
		Rules:       DefaultRules(),
	}
}

// Validate checks and compiles the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Replacement == "" {
		c.Replacement = DefaultReplacement
	}

	c.compiledRules = make([]compiledRule, 0, len(c.Rules))
	seen := make(map[string]bool, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: id is required", i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("rule %s: duplicate id", rule.ID)
		}
		seen[rule.ID] = true
		if rule.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", rule.ID)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}

		cr := compiledRule{Rule: rule, pattern: pattern}
		for _, kw := range rule.Keywords {
			cr.keywords = append(cr.keywords, regexp.MustCompile("(?i)"+regexp.QuoteMeta(kw)))
		}
		c.compiledRules = append(c.compiledRules, cr)
	}

	c.compiledAllow = make([]*regexp.Regexp, 0, len(c.AllowList))
	for i, p := range c.AllowList {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		c.compiledAllow = append(c.compiledAllow, re)
	}
	return nil
}
