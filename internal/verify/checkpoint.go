package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/namelens/orgmatch/internal/ailink"
)

// DefaultCheckpointStem prefixes checkpoint file names.
const DefaultCheckpointStem = "verify"

// Chunk is the persisted outcome of one batch.
type Chunk struct {
	Index int           `json:"chunk"`
	Rows  []RowDecision `json:"rows"`
}

// RowDecision is the verdict recorded for one table row.
type RowDecision struct {
	RowID    int             `json:"row_id"`
	Decision ailink.Decision `json:"decision"`
	Reason   string          `json:"reason"`
}

// Checkpoints stores one file per batch under Dir. A batch is complete
// exactly when its file exists.
type Checkpoints struct {
	Dir  string
	Stem string
}

// NewCheckpoints creates dir if needed.
func NewCheckpoints(dir, stem string) (*Checkpoints, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("checkpoint directory is required")
	}
	if strings.TrimSpace(stem) == "" {
		stem = DefaultCheckpointStem
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &Checkpoints{Dir: dir, Stem: stem}, nil
}

// Path returns the file holding batch index.
func (c *Checkpoints) Path(index int) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%05d.json", c.Stem, index))
}

// Exists reports whether batch index has been committed.
func (c *Checkpoints) Exists(index int) (bool, error) {
	_, err := os.Stat(c.Path(index))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat checkpoint %d: %w", index, err)
}

// Load reads a committed batch.
func (c *Checkpoints) Load(index int) (*Chunk, error) {
	data, err := os.ReadFile(c.Path(index))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %d: %w", index, err)
	}
	var chunk Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", filepath.Base(c.Path(index)), err)
	}
	if chunk.Index != index {
		return nil, fmt.Errorf("checkpoint %s holds chunk %d", filepath.Base(c.Path(index)), chunk.Index)
	}
	return &chunk, nil
}

// Save commits a batch. The file is written beside its final name and
// renamed into place, so readers never observe a partial chunk.
func (c *Checkpoints) Save(chunk *Chunk) error {
	if chunk == nil {
		return errors.New("checkpoint chunk is nil")
	}
	if chunk.Rows == nil {
		chunk.Rows = []RowDecision{}
	}
	data, err := json.MarshalIndent(chunk, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint %d: %w", chunk.Index, err)
	}

	tmp, err := os.CreateTemp(c.Dir, "."+c.Stem+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write checkpoint %d: %w", chunk.Index, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync checkpoint %d: %w", chunk.Index, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close checkpoint %d: %w", chunk.Index, err)
	}
	if err := os.Rename(tmpName, c.Path(chunk.Index)); err != nil {
		cleanup()
		return fmt.Errorf("commit checkpoint %d: %w", chunk.Index, err)
	}
	return nil
}
