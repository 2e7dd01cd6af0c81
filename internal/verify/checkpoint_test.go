package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/ailink"
)

func TestCheckpointsSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoints")
	store, err := NewCheckpoints(dir, "run")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "run_00003.json"), store.Path(3))

	done, err := store.Exists(3)
	require.NoError(t, err)
	require.False(t, done)

	chunk := &Chunk{Index: 3, Rows: []RowDecision{{RowID: 12, Decision: ailink.DecisionCorrect, Reason: "same"}}}
	require.NoError(t, store.Save(chunk))

	done, err = store.Exists(3)
	require.NoError(t, err)
	require.True(t, done)

	loaded, err := store.Load(3)
	require.NoError(t, err)
	require.Equal(t, chunk, loaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are renamed away")
}

func TestCheckpointsEmptyChunk(t *testing.T) {
	store, err := NewCheckpoints(t.TempDir(), "")
	require.NoError(t, err)
	require.NoError(t, store.Save(&Chunk{Index: 0}))

	data, err := os.ReadFile(store.Path(0))
	require.NoError(t, err)
	require.JSONEq(t, `{"chunk":0,"rows":[]}`, string(data))
	require.Equal(t, "verify_00000.json", filepath.Base(store.Path(0)))
}

func TestCheckpointsRejectMismatchedChunk(t *testing.T) {
	store, err := NewCheckpoints(t.TempDir(), "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(1), []byte(`{"chunk":4,"rows":[]}`), 0o644))

	_, err = store.Load(1)
	require.ErrorContains(t, err, "holds chunk 4")

	require.NoError(t, os.WriteFile(store.Path(2), []byte(`not json`), 0o644))
	_, err = store.Load(2)
	require.ErrorContains(t, err, "decode checkpoint")
}

func TestNewCheckpointsRequiresDir(t *testing.T) {
	_, err := NewCheckpoints(" ", "x")
	require.Error(t, err)
}
