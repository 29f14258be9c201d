package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"firestige.xyz/bytescope/internal/rules"
)

// RuleFile is a batch of rules in textual form, as loaded by `rules apply`.
type RuleFile struct {
	Watches  []rules.WatchSpec   `json:"watches" yaml:"watches"`
	Labels   []rules.LabelSpec   `json:"labels" yaml:"labels"`
	Suspects []rules.SuspectSpec `json:"suspects" yaml:"suspects"`
}

// Validate builds every rule and reports all failures at once.
func (f *RuleFile) Validate() error {
	var errs []error
	for i, w := range f.Watches {
		if r, err := w.Build(); err != nil {
			errs = append(errs, fmt.Errorf("watches[%d]: %w", i, err))
		} else if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("watches[%d]: %w", i, err))
		}
	}
	for i, l := range f.Labels {
		if r, err := l.Build(); err != nil {
			errs = append(errs, fmt.Errorf("labels[%d]: %w", i, err))
		} else if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("labels[%d]: %w", i, err))
		}
	}
	for i, s := range f.Suspects {
		if r, err := s.Build(); err != nil {
			errs = append(errs, fmt.Errorf("suspects[%d]: %w", i, err))
		} else if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("suspects[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of rules in the file.
func (f *RuleFile) Count() int {
	return len(f.Watches) + len(f.Labels) + len(f.Suspects)
}

// ParseRuleFile parses rules from YAML. JSON is valid YAML, so this also
// accepts JSON documents.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseRuleFileJSON parses rules from strict JSON.
func ParseRuleFileJSON(data []byte) (*RuleFile, error) {
	var f RuleFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseRuleFileAuto picks the parser from the file extension
// (.json, .yaml, .yml); anything else is tried as YAML.
func ParseRuleFileAuto(data []byte, filename string) (*RuleFile, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ParseRuleFileJSON(data)
	default:
		return ParseRuleFile(data)
	}
}

// Apply adds every rule to store in file order.
func (f *RuleFile) Apply(store *rules.Store) error {
	for i, w := range f.Watches {
		r, err := w.Build()
		if err == nil {
			_, err = store.AddWatch(r)
		}
		if err != nil {
			return fmt.Errorf("watches[%d]: %w", i, err)
		}
	}
	for i, l := range f.Labels {
		r, err := l.Build()
		if err == nil {
			_, err = store.AddLabel(r)
		}
		if err != nil {
			return fmt.Errorf("labels[%d]: %w", i, err)
		}
	}
	for i, s := range f.Suspects {
		r, err := s.Build()
		if err == nil {
			_, err = store.AddSuspect(r)
		}
		if err != nil {
			return fmt.Errorf("suspects[%d]: %w", i, err)
		}
	}
	return nil
}
