package decompose

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gantrylabs/gantry/pkg/models"
)

func TestDefaultLibraryIsWellFormed(t *testing.T) {
	lib := DefaultLibrary()

	templates := lib.Templates()
	if len(templates) == 0 {
		t.Fatal("default library has no templates")
	}
	for _, tpl := range templates {
		if tpl.Name == "" {
			t.Error("template with empty name")
		}
		if len(tpl.Match) == 0 {
			t.Errorf("template %s has no match keywords", tpl.Name)
		}
		if len(tpl.Subtasks) == 0 {
			t.Errorf("template %s has no subtasks", tpl.Name)
		}

		share := 0.0
		for _, sub := range tpl.Subtasks {
			if sub.Title == "" {
				t.Errorf("template %s has a subtask without a title", tpl.Name)
			}
			share += sub.EffortShare
		}
		if math.Abs(share-1) > 0.01 {
			t.Errorf("template %s effort shares sum to %.2f, want 1.0", tpl.Name, share)
		}
	}
}

func TestLibraryMatchPicksBestHit(t *testing.T) {
	lib := DefaultLibrary()

	tests := []struct {
		name string
		task *models.Task
		want string
	}{
		{
			"oauth login",
			&models.Task{Title: "Add OAuth login", Description: "Support SSO for the admin console"},
			"authentication-flow",
		},
		{
			"schema backfill",
			&models.Task{Title: "Backfill orders table", Description: "Write a migration for the orders schema change"},
			"data-migration",
		},
		{
			"tag match",
			&models.Task{Title: "Investigate checkout", Tags: []string{"performance", "latency"}},
			"performance-investigation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := lib.Match(tt.task)
			if tpl == nil {
				t.Fatal("Match() = nil, want a template")
			}
			if tpl.Name != tt.want {
				t.Errorf("Match() = %s, want %s", tpl.Name, tt.want)
			}
		})
	}
}

func TestLibraryMatchReturnsNilWithoutHits(t *testing.T) {
	lib := DefaultLibrary()
	task := &models.Task{Title: "Overhaul ledger reconciliation", Description: "Rework the nightly batch"}
	if tpl := lib.Match(task); tpl != nil {
		t.Errorf("Match() = %s, want nil", tpl.Name)
	}
}

func TestLibraryLoadFileReplacesAndAppends(t *testing.T) {
	lib := DefaultLibrary()
	builtins := len(lib.Templates())

	path := filepath.Join(t.TempDir(), "templates.yaml")
	custom := `
templates:
  - name: crud-service
    match: [crud]
    subtasks:
      - title: Single custom step
        effort_share: 1.0
  - name: incident-review
    match: [incident, outage]
    subtasks:
      - title: Assemble timeline
        effort_share: 0.5
      - title: Write follow-ups
        effort_share: 0.5
`
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatalf("write template file: %v", err)
	}

	if err := lib.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	templates := lib.Templates()
	if len(templates) != builtins+1 {
		t.Fatalf("library has %d templates, want %d", len(templates), builtins+1)
	}

	var crud, incident *Template
	for i := range templates {
		switch templates[i].Name {
		case "crud-service":
			crud = &templates[i]
		case "incident-review":
			incident = &templates[i]
		}
	}
	if crud == nil || len(crud.Subtasks) != 1 || crud.Subtasks[0].Title != "Single custom step" {
		t.Errorf("crud-service was not replaced by the user template: %+v", crud)
	}
	if incident == nil || len(incident.Subtasks) != 2 {
		t.Errorf("incident-review was not appended: %+v", incident)
	}
}

func TestLibraryLoadFileMissingPath(t *testing.T) {
	lib := DefaultLibrary()
	if err := lib.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile() on a missing path returned nil error")
	}
}

func TestParseLibraryRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "templates: ["},
		{"missing name", "templates:\n  - match: [x]\n    subtasks:\n      - title: y"},
		{"no subtasks", "templates:\n  - name: empty\n    match: [x]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLibrary([]byte(tt.data)); err == nil {
				t.Error("ParseLibrary() accepted malformed input")
			}
		})
	}
}
