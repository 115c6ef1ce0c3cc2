package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/crowdsim/internal/storage"
)

const batchYAML = `
name: nightly
description: short smoke runs
runs:
  - preset: single
    duration: 0.5
  - config: scenes/hall.yaml
    name: hall-fast
    repeat: 2
    seed: 7
    params:
      desired_speed: 1.8
`

const hallYAML = `
name: hall
dt: 0.05
duration: 0.5
agents:
  - position: [0, 0]
    goal: [5, 0]
`

func writeBatch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scenes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenes", "hall.yaml"), []byte(hallYAML), 0644))
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(batchYAML), 0644))
	return path
}

func TestLoadBatch(t *testing.T) {
	b, err := LoadBatch(writeBatch(t))
	require.NoError(t, err)
	assert.Equal(t, "nightly", b.Name)
	require.Len(t, b.Runs, 2)
	assert.Equal(t, 2, b.Runs[1].Repeat)
	require.NotNil(t, b.Runs[1].Seed)
	assert.Equal(t, int64(7), *b.Runs[1].Seed)

	cfg, err := b.Scenario(b.Runs[1])
	require.NoError(t, err)
	assert.Equal(t, "hall-fast", cfg.Name)
	assert.Equal(t, 0.05, cfg.Dt)
	assert.Equal(t, 1.8, cfg.Agents[0].DesiredSpeed)
}

func TestLoadBatchErrors(t *testing.T) {
	_, err := LoadBatch(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: nothing\n"), 0644))
	_, err = LoadBatch(path)
	assert.Error(t, err)
}

func TestScenarioErrors(t *testing.T) {
	b := &Batch{}
	for _, run := range []BatchRun{
		{},
		{Preset: "single", Config: "x.yaml"},
		{Preset: "nowhere"},
		{Preset: "single", Params: map[string]float64{"gravity": 1}},
		{Preset: "single", Dt: -0.1},
	} {
		_, err := b.Scenario(run)
		assert.Error(t, err, "%+v", run)
	}
}

func TestRunnerStoresEveryRun(t *testing.T) {
	b, err := LoadBatch(writeBatch(t))
	require.NoError(t, err)

	st := storage.New(t.TempDir())
	require.NoError(t, st.Init())

	outcomes, err := NewRunner(st, nil).Run(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "single", outcomes[0].Name)
	assert.Equal(t, 5, outcomes[0].Result.StepsTaken)
	assert.Equal(t, int64(7), outcomes[1].Seed)
	assert.Equal(t, int64(8), outcomes[2].Seed)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for _, o := range outcomes {
		assert.NotEmpty(t, o.RunID)
	}
}

func TestRunnerStopsOnFailure(t *testing.T) {
	b := &Batch{Runs: []BatchRun{
		{Preset: "single", Duration: 0.2},
		{Preset: "missing"},
		{Preset: "single"},
	}}

	outcomes, err := NewRunner(nil, nil).Run(context.Background(), b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 2")
	require.Len(t, outcomes, 1)
	assert.Empty(t, outcomes[0].RunID)
}
