package event

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"github.com/HadjievK/event-driven-agent/internal/schedule"
)

// DefinitionFile is the file each event directory must contain.
const DefinitionFile = "EVENT.md"

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Schedule    string `yaml:"schedule"`
	Active      bool   `yaml:"active"`
	Action      struct {
		MCP    string            `yaml:"mcp"`
		Params map[string]string `yaml:"params"`
	} `yaml:"action"`
}

// ParseDir reads and validates the EVENT.md inside dir.
//
// The directory name is the fallback event name. Validation failures wrap
// ErrInvalidDefinition and identify the offending directory.
func ParseDir(dir string) (Definition, error) {
	path := filepath.Join(dir, DefinitionFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, filepath.Base(dir), err)
	}
	def, err := Parse(string(raw), dir)
	if err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Parse parses EVENT.md content. dir is the event directory used for the
// name fallback and file-reference classification.
func Parse(raw, dir string) (Definition, error) {
	base := filepath.Base(dir)
	fm, err := splitFrontmatter(raw)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, base, err)
	}

	var f frontmatter
	if err := yaml.Unmarshal([]byte(fm), &f); err != nil {
		return Definition{}, fmt.Errorf("%w: %s: frontmatter: %v", ErrInvalidDefinition, base, err)
	}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = base
	}
	if strings.TrimSpace(f.Type) != "scheduled" {
		return Definition{}, fmt.Errorf("%w: %s: unsupported type %q", ErrInvalidDefinition, base, f.Type)
	}
	if strings.TrimSpace(f.Schedule) == "" {
		return Definition{}, fmt.Errorf("%w: %s: schedule is required", ErrInvalidDefinition, base)
	}
	rule, err := schedule.Parse(f.Schedule)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, base, err)
	}
	if strings.TrimSpace(f.Action.MCP) == "" {
		return Definition{}, fmt.Errorf("%w: %s: action.mcp is required", ErrInvalidDefinition, base)
	}

	params := make(map[string]Param, len(f.Action.Params))
	for k, v := range f.Action.Params {
		params[k] = classifyParam(v, dir)
	}

	return Definition{
		Name:         name,
		Description:  strings.TrimSpace(f.Description),
		ScheduleText: strings.TrimSpace(f.Schedule),
		Rule:         rule,
		Active:       f.Active,
		Action:       Action{Tool: strings.TrimSpace(f.Action.MCP), Params: params},
		Dir:          dir,
	}, nil
}

// splitFrontmatter extracts the YAML block between the leading "---" markers.
func splitFrontmatter(raw string) (string, error) {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.TrimLeft(s, "\n\r ")
	if !strings.HasPrefix(s, "---") {
		return "", fmt.Errorf("EVENT.md must start with --- frontmatter")
	}
	rest := s[3:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", fmt.Errorf("EVENT.md frontmatter not closed with ---")
	}
	return rest[:idx], nil
}

// classifyParam decides literal vs file reference at load time.
//
// A value is a file reference when it carries a known reference extension and
// the path stays inside the event directory. Existence is not required here;
// a missing file surfaces as a dispatch error at fire time.
func classifyParam(value, dir string) Param {
	v := strings.TrimSpace(value)
	ext := strings.ToLower(filepath.Ext(v))
	if ext != ".md" && ext != ".txt" {
		return Param{Kind: ParamLiteral, Value: value}
	}
	if filepath.IsAbs(v) {
		return Param{Kind: ParamLiteral, Value: value}
	}
	// containment check: reject path escapes like "../../etc/passwd.txt"
	clean := filepath.Clean(filepath.Join(dir, v))
	rel, err := filepath.Rel(dir, clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Param{Kind: ParamLiteral, Value: value}
	}
	return Param{Kind: ParamFileRef, Value: v}
}

// Problem records a definition directory that failed to load during a scan.
type Problem struct {
	Dir string
	Err error
}

// Scan walks the events root and parses every directory containing an
// EVENT.md. Malformed definitions are reported as Problems, never aborting
// the scan; directories without an EVENT.md are ignored.
func Scan(root string) ([]Definition, []Problem, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("events root: %w", err)
	}

	var defs []Definition
	var probs []Problem
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, DefinitionFile)); err != nil {
			continue
		}
		def, err := ParseDir(dir)
		if err != nil {
			probs = append(probs, Problem{Dir: dir, Err: err})
			continue
		}
		defs = append(defs, def)
	}
	return defs, probs, nil
}

// ParseRecipients parses a recipients file: one address per line, skipping
// blank lines and '#' comments.
func ParseRecipients(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out
}
