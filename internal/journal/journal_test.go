package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	j := openTemp(t)
	id := uuid.New()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Act
	require.NoError(t, j.StartRun(ctx, Run{ID: id, Pipeline: "demo", Targets: []string{"blur.output[0]"}, StartedAt: start}))
	require.NoError(t, j.RecordNode(ctx, NodeEntry{RunID: id, Node: "src", Kind: "grid_source", Action: ActionExecuted, Duration: 1500 * time.Microsecond, At: start}))
	require.NoError(t, j.RecordNode(ctx, NodeEntry{RunID: id, Node: "blur", Kind: "smooth", Action: ActionFailed, Error: "boom", At: start}))
	require.NoError(t, j.FinishRun(ctx, Run{ID: id, FinishedAt: start.Add(2 * time.Second), Outcome: OutcomeFailed, Error: "boom", Executed: 1, Failed: 1}))

	// Assert
	got, err := j.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Pipeline)
	assert.Equal(t, []string{"blur.output[0]"}, got.Targets)
	assert.Equal(t, OutcomeFailed, got.Outcome)
	assert.Equal(t, 2*time.Second, got.Duration())
	assert.Equal(t, 1, got.Executed)

	nodes, err := j.Nodes(ctx, id)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "src", nodes[0].Node)
	assert.Equal(t, 1500*time.Microsecond, nodes[0].Duration)
	assert.Equal(t, "boom", nodes[1].Error)
}

func TestJournal_List(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, j.StartRun(ctx, Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	runs, err := j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, OutcomeRunning, runs[0].Outcome)
	assert.Zero(t, runs[0].Duration())

	all, err := j.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestJournal_Errors(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	_, err := j.Get(ctx, uuid.New())
	assert.ErrorContains(t, err, "not found")
	assert.Error(t, j.FinishRun(ctx, Run{ID: uuid.New(), Outcome: OutcomeSucceeded}))
}

func TestObserver_RecordsUpdates(t *testing.T) {
	// Arrange
	ctx := context.Background()
	j := openTemp(t)
	p := pipeline.New(pipeline.WithObserver(NewObserver(j, "demo")))
	_, err := p.AddNode("src", pipeline.Spec{
		Kind:    "test_source",
		Outputs: []pipeline.PortSpec{{Name: "grid"}},
		Handlers: pipeline.Handlers{
			DescribeOutputs: func(_ context.Context, req *pipeline.DescribeRequest) error {
				return req.SetWholeExtent(0, extent.New(0, 9, 0, 0, 0, 0))
			},
			Execute: func(_ context.Context, req *pipeline.ExecuteRequest) error {
				return req.SetOutput(0, "grid")
			},
		},
	})
	require.NoError(t, err)

	// Act
	res1, err := p.Update(ctx, pipeline.Target{Node: "src"})
	require.NoError(t, err)
	res2, err := p.Update(ctx, pipeline.Target{Node: "src"})
	require.NoError(t, err)

	// Assert
	runs, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	byID := map[uuid.UUID]Run{runs[0].ID: runs[0], runs[1].ID: runs[1]}
	assert.Equal(t, OutcomeSucceeded, byID[res1.RunID].Outcome)
	assert.Equal(t, 1, byID[res1.RunID].Executed)
	assert.Equal(t, OutcomeCached, byID[res2.RunID].Outcome)
	assert.Equal(t, "demo", byID[res2.RunID].Pipeline)

	nodes, err := j.Nodes(ctx, res1.RunID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, ActionExecuted, nodes[0].Action)
	assert.Equal(t, "test_source", nodes[0].Kind)
}
