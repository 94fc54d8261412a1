package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDefaults = `
policies:
  - category: meals
    max_amount: 100
    requires_receipt: true
    auto_approve_limit: 25
  - category: travel
    max_amount: 3000
    requires_receipt: true
`

func writeDefaults(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "policy_defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	d := NewDefaults(nil)
	path := writeDefaults(t, t.TempDir(), validDefaults)

	require.NoError(t, d.LoadFile(path))

	rules := d.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "meals", rules[0].Category)
	assert.Equal(t, 100.0, rules[0].MaxAmount)
	assert.Equal(t, 25.0, rules[0].AutoApproveLimit)
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "policies: ["},
		{"empty document", "policies: []"},
		{"missing category", "policies:\n  - max_amount: 10\n"},
		{"negative limit", "policies:\n  - category: meals\n    max_amount: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDefaults(nil)
			path := writeDefaults(t, dir, tt.content)
			assert.Error(t, d.LoadFile(path))
			// Built-in rules survive a failed load.
			assert.Len(t, d.Rules(), len(builtinDefaults))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		d := NewDefaults(nil)
		assert.Error(t, d.LoadFile(filepath.Join(dir, "nope.yaml")))
	})
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := writeDefaults(t, dir, validDefaults)

	d := NewDefaults(nil)
	require.NoError(t, d.LoadFile(path))

	fw, err := NewFileWatcher(path, d, nil)
	require.NoError(t, err)
	fw.SetDebounceTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Watch(ctx))
	defer fw.Stop()

	updated := validDefaults + `  - category: software
    max_amount: 500
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case ev := <-fw.EventChan():
		require.NoError(t, ev.Error)
		assert.Equal(t, 3, ev.Rules)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	assert.Len(t, d.Rules(), 3)
}

func TestWatcherKeepsRulesOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := writeDefaults(t, dir, validDefaults)

	d := NewDefaults(nil)
	require.NoError(t, d.LoadFile(path))

	fw, err := NewFileWatcher(path, d, nil)
	require.NoError(t, err)
	fw.SetDebounceTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Watch(ctx))
	defer fw.Stop()

	require.NoError(t, os.WriteFile(path, []byte("policies: ["), 0o644))

	select {
	case ev := <-fw.EventChan():
		assert.Error(t, ev.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	assert.Len(t, d.Rules(), 2)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeDefaults(t, dir, validDefaults)

	d := NewDefaults(nil)
	fw, err := NewFileWatcher(path, d, nil)
	require.NoError(t, err)
	fw.SetDebounceTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Watch(ctx))
	defer fw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.yaml"), []byte("x: 1"), 0o644))

	select {
	case ev := <-fw.EventChan():
		t.Fatalf("unexpected reload event: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}
