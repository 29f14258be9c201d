package core

import (
	"bytes"
	"fmt"
)

// LabelRule names messages whose bytes at Range equal Value exactly.
type LabelRule struct {
	Name  string    `json:"name"`
	Range ByteRange `json:"range"`
	Value []byte    `json:"value"`
}

// Validate checks the fields an operator must supply.
func (r LabelRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: label name is required", ErrInvalidRule)
	}
	if r.Range.Start > r.Range.End {
		return fmt.Errorf("%w: range %s is reversed", ErrInvalidRule, r.Range)
	}
	return nil
}

// Classify returns the name of the first rule, in order, whose range
// resolves against msg and whose bytes equal the rule value. Rules whose
// range falls outside msg are skipped.
func Classify(msg []byte, rules []LabelRule) (string, bool) {
	for _, r := range rules {
		slice, ok := r.Range.Resolve(msg)
		if !ok {
			continue
		}
		if bytes.Equal(slice, r.Value) {
			return r.Name, true
		}
	}
	return "", false
}
