package domainmode

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
)

func TestRecordFailureAutoApprovesToLearned(t *testing.T) {
	var events []models.EventType
	sink := func(et models.EventType, _ models.Severity, _ string, _ map[string]interface{}) {
		events = append(events, et)
	}
	m := New(5*time.Minute, 3, true, sink)

	host := "blocked.example.com"
	for i := 0; i < 3; i++ {
		m.RecordFailure(host)
	}

	assert.True(t, m.ShouldUseHeadless(host))
	assert.Contains(t, events, models.EventModeEscalated)
}

func TestRecordFailureRequiresApprovalWhenNotAutoApprove(t *testing.T) {
	m := New(5*time.Minute, 3, false, nil)
	host := "maybe.example.com"
	for i := 0; i < 3; i++ {
		m.RecordFailure(host)
	}
	assert.False(t, m.ShouldUseHeadless(host))

	ok := m.ApprovePending(host)
	assert.True(t, ok)
	assert.True(t, m.ShouldUseHeadless(host))
}

func TestManualTierNeverDemoted(t *testing.T) {
	m := New(5*time.Minute, 1, true, nil)
	host := "manual.example.com"
	m.ManualPromote(host, models.ModeHeadless)

	m.RecordFailure(host)
	assert.True(t, m.ShouldUseHeadless(host))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, models.TierManual, snap[0].Tier)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	m := New(5*time.Minute, 1, true, nil)
	m.ManualPromote("persisted.example.com", models.ModeHeadless)

	path := filepath.Join(t.TempDir(), "domain-modes.json")
	require.NoError(t, Save(path, m))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted.example.com", entries[0].Host)

	m2 := New(5*time.Minute, 1, true, nil)
	m2.Restore(entries)
	assert.True(t, m2.ShouldUseHeadless("persisted.example.com"))
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}
