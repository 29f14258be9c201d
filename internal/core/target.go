package core

// Target scopes a watch or suspect rule to every message or to messages
// carrying one label. The zero value targets all messages.
type Target struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// AllMessages targets every message.
func AllMessages() Target { return Target{} }

// ForLabel targets messages classified as name.
func ForLabel(name string) Target { return Target{Label: name} }

// IsAll reports whether t applies regardless of label.
func (t Target) IsAll() bool { return t.Label == "" }

// Applies reports whether t matches a message whose classification is
// activeLabel ("" when no label rule matched).
func (t Target) Applies(activeLabel string) bool {
	if t.IsAll() {
		return true
	}
	return activeLabel != "" && t.Label == activeLabel
}

func (t Target) String() string {
	if t.IsAll() {
		return "All messages"
	}
	return t.Label
}
