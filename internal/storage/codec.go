package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Export document format version. Decoders reject anything newer.
const exportVersion = "1.0"

// exportGenerator names the producer in export metadata.
const exportGenerator = "gantry"

// ExportMetadata describes an export document.
type ExportMetadata struct {
	// Version is the document format version.
	Version string `json:"version"`
	// GeneratedBy names the producing program.
	GeneratedBy string `json:"generatedBy"`
	// Timestamp is when the document was written.
	Timestamp time.Time `json:"timestamp"`
	// TotalTasks counts tasks across all three arrays.
	TotalTasks int `json:"totalTasks"`
}

// ExportDocument is the on-disk JSON shape shared by export, import,
// and the jsonfile backend. Tasks are partitioned by type: epics,
// subtasks, and everything in between.
type ExportDocument struct {
	Metadata ExportMetadata `json:"metadata"`
	Epics    []*models.Task `json:"epics"`
	Tasks    []*models.Task `json:"tasks"`
	Subtasks []*models.Task `json:"subtasks"`
}

// EncodeTasks renders tasks as an export document. Tasks are sorted
// by id within each partition so output is reproducible, and derived
// children are stripped.
func EncodeTasks(tasks []*models.Task, now time.Time) ([]byte, error) {
	doc := ExportDocument{
		Metadata: ExportMetadata{
			Version:     exportVersion,
			GeneratedBy: exportGenerator,
			Timestamp:   now.UTC(),
			TotalTasks:  len(tasks),
		},
		Epics:    []*models.Task{},
		Tasks:    []*models.Task{},
		Subtasks: []*models.Task{},
	}

	for _, task := range tasks {
		flat := task.Clone()
		flat.Children = nil
		switch flat.Type {
		case models.TaskTypeEpic:
			doc.Epics = append(doc.Epics, flat)
		case models.TaskTypeSubtask:
			doc.Subtasks = append(doc.Subtasks, flat)
		default:
			doc.Tasks = append(doc.Tasks, flat)
		}
	}
	sortByID(doc.Epics)
	sortByID(doc.Tasks)
	sortByID(doc.Subtasks)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export document: %w", err)
	}
	return data, nil
}

// DecodeTasks parses an export document and returns all its tasks.
func DecodeTasks(data []byte) ([]*models.Task, error) {
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export document: %w", err)
	}
	if doc.Metadata.Version != exportVersion {
		return nil, fmt.Errorf("unsupported export version %q", doc.Metadata.Version)
	}

	tasks := make([]*models.Task, 0, len(doc.Epics)+len(doc.Tasks)+len(doc.Subtasks))
	tasks = append(tasks, doc.Epics...)
	tasks = append(tasks, doc.Tasks...)
	tasks = append(tasks, doc.Subtasks...)
	return tasks, nil
}

// AtomicWrite writes data to path through a temp file in the same
// directory and renames it into place, so readers never observe a
// partial document.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gantry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func sortByID(tasks []*models.Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
}
