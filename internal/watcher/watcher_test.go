package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(NameFilter("config.js"))
	watcher.AddHandler(func(context.Context, []ChangeEvent) error { return nil })
	assert.Len(t, watcher.filters, 1)
	assert.Len(t, watcher.handlers, 1)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	assert.NoError(t, watcher.AddPath(dir))

	file := filepath.Join(dir, "config.js")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.NoError(t, watcher.AddPath(file), "files are watched through their directory")

	assert.Error(t, watcher.AddPath(filepath.Join(dir, "missing")))
}

func TestFileWatcherDeliversFilteredBatches(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddPath(dir))
	watcher.AddFilter(NameFilter("config.js", "package.json"))

	var mu sync.Mutex
	var batches [][]ChangeEvent
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, events)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.js"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.js"), []byte("ab"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, batch := range batches {
		for _, event := range batch {
			assert.Equal(t, "config.js", filepath.Base(event.Path))
		}
	}
}

func TestDebouncer(t *testing.T) {
	debouncer := NewDebouncer(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.Run(ctx)

	assert.True(t, debouncer.Add(ChangeEvent{Path: "package.json", Type: EventTypeModified}))
	assert.True(t, debouncer.Add(ChangeEvent{Path: "config.js", Type: EventTypeCreated}))
	assert.True(t, debouncer.Add(ChangeEvent{Path: "config.js", Type: EventTypeModified}))

	select {
	case events := <-debouncer.Output():
		require.Len(t, events, 2)
		assert.Equal(t, "config.js", events[0].Path)
		assert.Equal(t, EventTypeModified, events[0].Type, "last event per path wins")
		assert.Equal(t, "package.json", events[1].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestDebouncerQueueFull(t *testing.T) {
	debouncer := NewDebouncer(time.Hour)
	for i := 0; i < cap(debouncer.events); i++ {
		require.True(t, debouncer.Add(ChangeEvent{Path: "config.js"}))
	}
	assert.False(t, debouncer.Add(ChangeEvent{Path: "config.js"}))
}

func TestNameFilter(t *testing.T) {
	filter := NameFilter("config.js", "package.json")

	assert.True(t, filter("/tpl/config.js"))
	assert.True(t, filter("package.json"))
	assert.False(t, filter("/tpl/config.js.bak"))
	assert.False(t, filter("/tpl/lib/other.js"))
}

func TestNoEditorTempFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"/tpl/config.js", true},
		{"/tpl/config.js~", false},
		{"/tpl/.config.js.swp", false},
		{"/tpl/#config.js#", false},
		{"/tpl/README.md", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoEditorTempFilter(tc.path))
		})
	}
}
