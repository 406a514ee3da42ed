package scrub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// rulesFile is the layout of a user rules file:
//
//	replacement = "[hidden]"
//	allow_list = ['^support@example\.com$']
//
//	[[rules]]
//	id = "employee-id"
//	pattern = 'EMP-\d{6}'
type rulesFile struct {
	Replacement string   `toml:"replacement"`
	AllowList   []string `toml:"allow_list"`
	Rules       []Rule   `toml:"rules"`
	Disable     []string `toml:"disable"`
}

// LoadConfig returns DefaultConfig extended by the TOML file at path.
// Rules in the file are appended (or replace a default rule of the same
// id); ids listed under disable are removed. An empty path or a missing
// file yields the defaults. A malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	var f rulesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0022 != 0 {
		return nil, fmt.Errorf("rules file %s is group or world writable", path)
	}

	if f.Replacement != "" {
		cfg.Replacement = f.Replacement
	}
	cfg.AllowList = append(cfg.AllowList, f.AllowList...)

	disabled := make(map[string]bool, len(f.Disable))
	for _, id := range f.Disable {
		disabled[id] = true
	}
	byID := make(map[string]int)
	rules := make([]Rule, 0, len(cfg.Rules)+len(f.Rules))
	for _, r := range append(cfg.Rules, f.Rules...) {
		if disabled[r.ID] {
			continue
		}
		if i, ok := byID[r.ID]; ok {
			rules[i] = r
			continue
		}
		byID[r.ID] = len(rules)
		rules = append(rules, r)
	}
	cfg.Rules = rules

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return cfg, nil
}
