package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
)

func TestWatchFile_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ring.json", ringInputJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, 10*time.Millisecond, slog.New(slog.DiscardHandler), func() {
			changed <- struct{}{}
		})
	}()

	// The watcher registers asynchronously; keep writing until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	seen := false
	for !seen {
		select {
		case <-changed:
			seen = true
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(ringInputJSON), 0o644))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchFile_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ring.json", ringInputJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, 10*time.Millisecond, slog.New(slog.DiscardHandler), func() {
			changed <- struct{}{}
		})
	}()

	for i := range 5 {
		writeFile(t, dir, filepath.Join("other", "x.json"), "{}")
		writeFile(t, dir, "sibling.json", string(rune('a'+i)))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-changed:
		t.Fatal("change reported for a sibling file")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchIteration_Output(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	watchIteration(context.Background(), &RootOptions{Format: "text"}, engine.NewMatcher(), path, cmd)
	assert.Contains(t, out.String(), "1 proposal(s) selected from 1 candidate(s)")
	assert.Contains(t, out.String(), "✓ "+ringProposalID)
}

func TestWatchIteration_ErrorsDoNotStop(t *testing.T) {
	path := writeFile(t, t.TempDir(), "unpriced.json", unpricedInputJSON)
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	watchIteration(context.Background(), &RootOptions{Format: "json"}, engine.NewMatcher(), path, cmd)

	resp := decodeData(t, out.String(), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMissingValue, resp.Error.Code)
}

func TestWatchCommand_MissingInput(t *testing.T) {
	_, err := execute(NewWatchCommand(&RootOptions{Format: "text"}), "/nonexistent/ring.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
