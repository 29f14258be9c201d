package core

import "fmt"

// WatchItem is a named byte range rendered for display on matching messages.
type WatchItem struct {
	Name   string    `json:"name"`
	Range  ByteRange `json:"range"`
	View   View      `json:"view"`
	Target Target    `json:"target"`
}

// Validate checks the watch shape.
func (w WatchItem) Validate() error {
	if w.Range.Start > w.Range.End {
		return fmt.Errorf("%w: range %s is reversed", ErrInvalidRule, w.Range)
	}
	return nil
}

// OutOfRange is shown for a watch whose range does not fit the message.
const OutOfRange = "-"

// WatchValue is one rendered watch row.
type WatchValue struct {
	Name    string `json:"name"`
	Range   string `json:"range"`
	View    string `json:"view"`
	Value   string `json:"value"`
	InRange bool   `json:"in_range"`
}

// RenderWatches renders every watch that applies to a message labelled
// activeLabel. Hex values carry a 0x prefix.
func RenderWatches(msg []byte, activeLabel string, watches []WatchItem) []WatchValue {
	var rows []WatchValue
	for _, w := range watches {
		if !w.Target.Applies(activeLabel) {
			continue
		}
		row := WatchValue{
			Name:  w.Name,
			Range: w.Range.String(),
			View:  w.View.String(),
			Value: OutOfRange,
		}
		if slice, ok := w.Range.Resolve(msg); ok {
			row.InRange = true
			row.Value = Render(slice, w.View)
			if w.View == ViewHex {
				row.Value = "0x" + row.Value
			}
		}
		rows = append(rows, row)
	}
	return rows
}
