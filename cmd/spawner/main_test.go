package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/goccy/go-json"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunPrintsSummary(t *testing.T) {
	out, err := execute(t, "run",
		"--ticks", "10", "--emitters", "1", "--rate", "1000", "--burst", "1",
		"--lifetime", "2", "--capacity", "8", "--log-level", "error")
	assert.NoError(t, err)

	var summary Summary
	assert.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 10, summary.Report.Spawned)
	assert.Equal(t, 2, summary.Report.World.Built)
	assert.Equal(t, 8.0, summary.Metrics[`spawnpool_transitions_total{kind="reused",pool="bullets"}`])
	assert.Equal(t, 10, summary.Stats["acquire"].Count)
	_, ok := summary.Stats["destroy"]
	assert.False(t, ok)
}

func TestRunDrain(t *testing.T) {
	out, err := execute(t, "run",
		"--ticks", "3", "--emitters", "1", "--rate", "0.001", "--burst", "1",
		"--lifetime", "1", "--drain", "--log-level", "error")
	assert.NoError(t, err)

	var summary Summary
	assert.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Drained)
	assert.Equal(t, 2, summary.Report.Throttled)
	assert.Equal(t, 0, summary.Report.Active+summary.Report.Inactive)
	assert.Equal(t, 1, summary.Report.World.Destroyed)
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "run", "--lifetime", "0", "--log-level", "error")
	assert.Error(t, err)

	_, err = execute(t, "run", "--log-level", "loud")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "spawner v"+version))
}

func TestRunWithSignalsReturnsResult(t *testing.T) {
	boom := errors.New("boom")
	err := runWithSignals(context.Background(), func(ctx context.Context) error { return boom })
	assert.IsError(t, err, boom)

	err = runWithSignals(context.Background(), func(ctx context.Context) error { return context.Canceled })
	assert.NoError(t, err)
}
