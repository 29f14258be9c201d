package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/bytescope/internal/core"
)

func TestStoreLabelOrderSurvivesEdits(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.AddLabel(core.LabelRule{Name: name, Range: core.NewByteRange(0, 0), Value: []byte{0x01}})
		require.NoError(t, err)
	}

	require.NoError(t, s.UpdateLabel(1, core.LabelRule{Name: "B2", Range: core.NewByteRange(1, 1), Value: []byte{0x02}}))

	snap := s.Snapshot()
	require.Len(t, snap.Labels, 3)
	assert.Equal(t, "A", snap.Labels[0].Name)
	assert.Equal(t, "B2", snap.Labels[1].Name)
	assert.Equal(t, core.NewByteRange(1, 1), snap.Labels[1].Range)
	assert.Equal(t, "C", snap.Labels[2].Name)

	require.NoError(t, s.DeleteLabel(0))
	snap = s.Snapshot()
	require.Len(t, snap.Labels, 2)
	assert.Equal(t, "B2", snap.Labels[0].Name)
}

func TestStoreUnknownIndex(t *testing.T) {
	s := NewStore()

	err := s.DeleteWatch(0)
	assert.True(t, errors.Is(err, core.ErrRuleNotFound))

	err = s.UpdateSuspect(3, core.SuspectRule{Name: "x", Range: core.NewByteRange(0, 0)})
	assert.True(t, errors.Is(err, core.ErrRuleNotFound))

	err = s.DeleteLabel(-1)
	assert.True(t, errors.Is(err, core.ErrRuleNotFound))
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	s := NewStore()

	_, err := s.AddLabel(core.LabelRule{Range: core.NewByteRange(0, 0)})
	assert.True(t, errors.Is(err, core.ErrInvalidRule))

	_, err = s.AddSuspect(core.SuspectRule{Name: "x", Range: core.NewByteRange(0, 0), Kind: core.ExpectHex, Expected: "nope"})
	assert.Error(t, err)

	assert.Equal(t, uint64(0), s.Version())
}

func TestStoreVersionAndSnapshotIsolation(t *testing.T) {
	s := NewStore()
	idx, err := s.AddWatch(core.WatchItem{Name: "w", Range: core.NewByteRange(0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	snap := s.Snapshot()
	snap.Watches[0].Name = "mutated"

	assert.Equal(t, "w", s.Snapshot().Watches[0].Name)
	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, map[Kind]int{KindWatch: 1, KindLabel: 0, KindSuspect: 0}, s.Counts())
}

func TestSpecBuild(t *testing.T) {
	t.Run("Watch", func(t *testing.T) {
		w, err := WatchSpec{Name: "id", Range: "7-3", View: "binary", Target: "PING"}.Build()
		require.NoError(t, err)
		assert.Equal(t, core.NewByteRange(3, 7), w.Range)
		assert.Equal(t, core.ViewBinary, w.View)
		assert.Equal(t, core.ForLabel("PING"), w.Target)
		assert.Equal(t, WatchSpec{Name: "id", Range: "3-7", View: "Binary", Target: "PING"}, WatchSpecOf(w))
	})

	t.Run("Label", func(t *testing.T) {
		l, err := LabelSpec{Name: "PING", Range: "3", Value: "01"}.Build()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01}, l.Value)
		assert.Equal(t, "3", LabelSpecOf(l).Range)

		_, err = LabelSpec{Name: "PING", Range: "3", Value: "GG"}.Build()
		assert.True(t, errors.Is(err, core.ErrInvalidHexToken))

		_, err = LabelSpec{Name: "PING", Range: "x", Value: "01"}.Build()
		assert.True(t, errors.Is(err, core.ErrInvalidRange))
	})

	t.Run("Suspect", func(t *testing.T) {
		r, err := SuspectSpec{Name: "magic", Range: "0..3", Kind: "hex", Expected: "50 49 4E 47", Severity: "critical"}.Build()
		require.NoError(t, err)
		assert.Equal(t, core.ExpectHex, r.Kind)
		assert.Equal(t, core.SeverityCritical, r.Severity)
		assert.True(t, r.Target.IsAll())

		_, err = SuspectSpec{Name: "magic", Range: "0", Severity: "loud"}.Build()
		assert.True(t, errors.Is(err, core.ErrInvalidRule))
	})
}
