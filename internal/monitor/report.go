package monitor

import (
	"fmt"
	"time"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/rules"
)

// Report is the derived view of one message under one rule snapshot.
type Report struct {
	Seq      uint64            `json:"seq" yaml:"seq"`
	Received time.Time         `json:"received" yaml:"received"`
	Title    string            `json:"title" yaml:"title"`
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
	Length   int               `json:"length" yaml:"length"`
	Hex      string            `json:"hex" yaml:"hex"`
	Text     string            `json:"text" yaml:"text"`
	Watches  []core.WatchValue `json:"watches,omitempty" yaml:"watches,omitempty"`
	Warnings []core.Warning    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Critical reports whether any warning on the message is critical.
func (r Report) Critical() bool {
	return core.HasCritical(r.Warnings)
}

func buildReport(msg Message, snap rules.Snapshot) Report {
	label, _ := core.Classify(msg.Data, snap.Labels)
	title := label
	if title == "" {
		title = fmt.Sprintf("Message %d", msg.Seq)
	}
	return Report{
		Seq:      msg.Seq,
		Received: msg.Received,
		Title:    title,
		Label:    label,
		Length:   len(msg.Data),
		Hex:      core.EncodeHexUpper(msg.Data),
		Text:     core.LossyText(msg.Data),
		Watches:  core.RenderWatches(msg.Data, label, snap.Watches),
		Warnings: core.Evaluate(msg.Data, label, snap.Suspects),
	}
}

// criticalActive folds every message's warnings; it is never stored.
func criticalActive(msgs []Message, snap rules.Snapshot) bool {
	if len(snap.Suspects) == 0 {
		return false
	}
	for _, msg := range msgs {
		label, _ := core.Classify(msg.Data, snap.Labels)
		if core.HasCritical(core.Evaluate(msg.Data, label, snap.Suspects)) {
			return true
		}
	}
	return false
}
