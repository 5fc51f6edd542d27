package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// State is the engine's persistable snapshot: the estimation model
// plus the retained dataset. One-shot processes save it on shutdown
// and load it on the next start, so completions recorded in separate
// invocations still reach the next training pass.
type State struct {
	Model  Model
	Points []DataPoint
}

// SaveState writes the engine state as JSON via temp file and rename,
// creating the directory if needed.
func (e *Engine) SaveState(path string) error {
	e.mu.Lock()
	state := State{Model: *e.model.clone(), Points: e.dataset.Points()}
	e.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding learning state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing learning state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing learning state: %w", err)
	}
	return nil
}

// LoadState replaces the engine state from a saved snapshot. A missing
// file is not an error; the fresh prior-seeded state stays in place.
// Loaded points pass through the usual eviction, so aged-out history
// drops on load rather than lingering until the next add.
func (e *Engine) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading learning state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decoding learning state %s: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if state.Model.ComplexityAvg != nil {
		e.model = state.Model.clone()
	}
	for _, p := range state.Points {
		e.dataset.Add(p)
	}
	return nil
}
