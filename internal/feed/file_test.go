package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDrop(t *testing.T, root, day, name, content string) {
	t.Helper()
	dir := filepath.Join(root, day)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFileSourceReplaysInOrder(t *testing.T) {
	root := t.TempDir()
	writeDrop(t, root, "20250602", "090000.json", `{
		"timestamp": "2025-06-02T09:00:00Z",
		"snapshots": {"005930.KS": {"symbol": "005930.KS", "current_price": 70000, "volume": 1500000}}
	}`)
	writeDrop(t, root, "20250602", "091000.json", `{
		"timestamp": "2025-06-02T09:10:00Z",
		"snapshots": {"005930.KS": {"symbol": "005930.KS", "current_price": 70500, "volume": 1600000}}
	}`)
	writeDrop(t, root, "20250603", "090000.json", `{
		"timestamp": "2025-06-03T09:00:00Z",
		"snapshots": {"005930.KS": {"symbol": "005930.KS", "current_price": 71000, "volume": 900000}}
	}`)

	src, err := NewFileSource(root)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Remaining())

	ctx := context.Background()

	first, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), first.Timestamp)
	assert.InDelta(t, 70000, first.Snapshots["005930.KS"].Price, 1e-9)

	second, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 70500, second.Snapshots["005930.KS"].Price, 1e-9)

	third, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), third.Timestamp)

	_, err = src.Fetch(ctx)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestFileSourceSkipsMalformedFiles(t *testing.T) {
	root := t.TempDir()
	writeDrop(t, root, "20250602", "090000.json", `{not json`)
	writeDrop(t, root, "20250602", "091000.json", `{"snapshots": {}}`)
	writeDrop(t, root, "20250602", "092000.json", `{
		"timestamp": "2025-06-02T09:20:00Z",
		"snapshots": {"AAPL": {"symbol": "AAPL", "current_price": 190.5, "volume": 5000000}}
	}`)

	src, err := NewFileSource(root)
	require.NoError(t, err)

	set, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 190.5, set.Snapshots["AAPL"].Price, 1e-9)

	_, err = src.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestFileSourceEmptyDirectory(t *testing.T) {
	_, err := NewFileSource(t.TempDir())
	assert.Error(t, err)
}

func TestFileSourceHonorsContext(t *testing.T) {
	root := t.TempDir()
	writeDrop(t, root, "20250602", "090000.json", `{
		"snapshots": {"AAPL": {"symbol": "AAPL", "current_price": 190, "volume": 1}}
	}`)

	src, err := NewFileSource(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
