package decompose

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/gantrylabs/gantry/pkg/models"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// TemplateSubtask is one predefined sub-task inside a template.
type TemplateSubtask struct {
	// Title is the sub-task title.
	Title string `yaml:"title"`
	// Description is the sub-task description.
	Description string `yaml:"description"`
	// EffortShare is this sub-task's fraction of the parent estimate.
	EffortShare float64 `yaml:"effort_share"`
}

// Template is a named sub-task pattern matched by keywords.
type Template struct {
	// Name identifies the template.
	Name string `yaml:"name"`
	// Match lists the keywords that select this template; any hit
	// counts, more hits rank higher.
	Match []string `yaml:"match"`
	// Ordered chains the sub-tasks with forward dependencies.
	Ordered bool `yaml:"ordered"`
	// Subtasks are the predefined sub-tasks to instantiate.
	Subtasks []TemplateSubtask `yaml:"subtasks"`
}

// Library holds the available decomposition templates.
type Library struct {
	templates []Template
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// ParseLibrary parses template YAML into a library.
func ParseLibrary(data []byte) (*Library, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template library: %w", err)
	}
	for _, tpl := range file.Templates {
		if tpl.Name == "" {
			return nil, fmt.Errorf("template library: template without a name")
		}
		if len(tpl.Subtasks) == 0 {
			return nil, fmt.Errorf("template library: template %s has no subtasks", tpl.Name)
		}
	}
	return &Library{templates: file.Templates}, nil
}

// DefaultLibrary returns the embedded template library. The embedded
// file is covered by tests, so a parse failure here is a build defect.
func DefaultLibrary() *Library {
	lib, err := ParseLibrary(defaultTemplatesYAML)
	if err != nil {
		panic(err)
	}
	return lib
}

// LoadFile merges templates from a user-provided YAML file into the
// library. User templates with a known name replace the built-in one.
func (l *Library) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template file: %w", err)
	}
	extra, err := ParseLibrary(data)
	if err != nil {
		return err
	}

	byName := make(map[string]int, len(l.templates))
	for i, tpl := range l.templates {
		byName[tpl.Name] = i
	}
	for _, tpl := range extra.templates {
		if i, exists := byName[tpl.Name]; exists {
			l.templates[i] = tpl
			continue
		}
		l.templates = append(l.templates, tpl)
	}
	return nil
}

// Templates returns the library's templates in order.
func (l *Library) Templates() []Template {
	out := make([]Template, len(l.templates))
	copy(out, l.templates)
	return out
}

// Match returns the template whose keywords best match the task's
// title, description, and tags, or nil when nothing matches.
func (l *Library) Match(task *models.Task) *Template {
	text := strings.ToLower(task.Title + " " + task.Description + " " + strings.Join(task.Tags, " "))

	best := -1
	bestHits := 0
	for i, tpl := range l.templates {
		hits := 0
		for _, keyword := range tpl.Match {
			if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best < 0 {
		return nil
	}
	tpl := l.templates[best]
	return &tpl
}
