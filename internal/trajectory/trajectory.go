// Package trajectory implements on-disk run persistence (§4.8, §6.5): one
// directory per run holding a metadata.json plus one subdirectory per
// turn, and the per-provider/model cost breakdown the original's
// trajectory format doesn't materialize anywhere explicitly but the same
// accounting the original tracks in memory would produce if surfaced.
package trajectory

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/haasonsaas/cua/internal/responses"
)

// Layout, fixed by §6.5:
//
//	<trajectory_dir>/
//	  run-<UUID>/
//	    metadata.json
//	    turn-0000/ { input.json, output.json, screenshot_after.png }
//	    turn-0001/ …
const turnDirFormat = "turn-%04d"

// Config configures a Writer, mirroring the `trajectory_dir` construction
// option's object form (§6.1): `str | {trajectory_dir, reset_on_run?}`.
type Config struct {
	Dir string
	// ResetOnRun wipes Dir's existing contents before the run directory is
	// created, rather than accumulating runs across process restarts.
	ResetOnRun bool
}

// CostEntry is the accumulated spend for one (provider, model) pair,
// supplementing the original's trajectory format with the per-tool/model
// cost breakdown it never persisted (SPEC_FULL.md supplemented feature).
type CostEntry struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Calls            int64   `json:"calls"`
}

// Metadata is the root-level metadata.json written once a run ends.
type Metadata struct {
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Turns     int       `json:"turns"`

	TotalUsage responses.Usage `json:"total_usage"`

	// CostByModel breaks TotalUsage down per (provider, model) — the
	// supplemented per-tool budget breakdown.
	CostByModel map[string]*CostEntry `json:"cost_by_model"`

	Error string `json:"error,omitempty"`
}

// Writer persists one run's turns and final metadata to disk.
type Writer struct {
	runDir string

	mu   sync.Mutex
	meta Metadata
}

// New creates (or resets, per cfg.ResetOnRun) the trajectory directory and
// returns a Writer scoped to runID's subdirectory.
func New(cfg Config, runID, model string) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("trajectory: empty directory")
	}
	if cfg.ResetOnRun {
		if err := os.RemoveAll(cfg.Dir); err != nil {
			return nil, fmt.Errorf("trajectory: reset_on_run: %w", err)
		}
	}
	runDir := filepath.Join(cfg.Dir, "run-"+runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("trajectory: mkdir run dir: %w", err)
	}
	return &Writer{
		runDir: runDir,
		meta: Metadata{
			RunID:       runID,
			Model:       model,
			StartedAt:   time.Now(),
			CostByModel: map[string]*CostEntry{},
		},
	}, nil
}

// WriteTurn persists one turn's input/output item snapshots.
func (w *Writer) WriteTurn(turnIndex int, input, output responses.Items) error {
	dir := w.turnDir(turnIndex)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("trajectory: mkdir turn dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "input.json"), input); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "output.json"), output); err != nil {
		return err
	}

	w.mu.Lock()
	if turnIndex+1 > w.meta.Turns {
		w.meta.Turns = turnIndex + 1
	}
	w.mu.Unlock()
	return nil
}

// WriteScreenshot persists a turn's post-action screenshot, given its
// base64-encoded PNG payload.
func (w *Writer) WriteScreenshot(turnIndex int, pngBase64 string) error {
	raw, err := base64.StdEncoding.DecodeString(pngBase64)
	if err != nil {
		return fmt.Errorf("trajectory: decode screenshot: %w", err)
	}
	dir := w.turnDir(turnIndex)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("trajectory: mkdir turn dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "screenshot_after.png"), raw, 0o644)
}

// RecordUsage accumulates usage into the run's total and the named
// provider/model's cost breakdown.
func (w *Writer) RecordUsage(provider, model string, usage responses.Usage) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.meta.TotalUsage.Add(usage)

	key := provider + "/" + model
	entry, ok := w.meta.CostByModel[key]
	if !ok {
		entry = &CostEntry{}
		w.meta.CostByModel[key] = entry
	}
	entry.PromptTokens += usage.PromptTokens
	entry.CompletionTokens += usage.CompletionTokens
	entry.CostUSD += usage.ResponseCost
	entry.Calls++
}

// Finalize writes metadata.json, recording runErr (if any) as the
// terminal error string.
func (w *Writer) Finalize(runErr error) error {
	w.mu.Lock()
	w.meta.EndedAt = time.Now()
	if runErr != nil {
		w.meta.Error = runErr.Error()
	}
	meta := w.meta
	w.mu.Unlock()

	return writeJSON(filepath.Join(w.runDir, "metadata.json"), meta)
}

// RunDir returns the directory this writer persists into.
func (w *Writer) RunDir() string { return w.runDir }

func (w *Writer) turnDir(turnIndex int) string {
	return filepath.Join(w.runDir, fmt.Sprintf(turnDirFormat, turnIndex))
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("trajectory: marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// Load reads a previously-written run's metadata.json, used by `cua
// replay` (SPEC_FULL.md supplemented feature) to reconstruct a run's
// shape without re-parsing every turn directory up front.
func Load(runDir string) (Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return Metadata{}, fmt.Errorf("trajectory: read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("trajectory: unmarshal metadata: %w", err)
	}
	return meta, nil
}

// LoadTurn reads one turn's input/output snapshots back, used by replay.
func LoadTurn(runDir string, turnIndex int) (input, output responses.Items, err error) {
	dir := filepath.Join(runDir, fmt.Sprintf(turnDirFormat, turnIndex))
	if input, err = readItems(filepath.Join(dir, "input.json")); err != nil {
		return nil, nil, err
	}
	if output, err = readItems(filepath.Join(dir, "output.json")); err != nil {
		return nil, nil, err
	}
	return input, output, nil
}

func readItems(path string) (responses.Items, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trajectory: read %s: %w", filepath.Base(path), err)
	}
	var items responses.Items
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("trajectory: unmarshal %s: %w", filepath.Base(path), err)
	}
	return items, nil
}
