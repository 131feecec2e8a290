package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/internal/schedule"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

// CreateRequest describes a new event to materialize under the events root.
type CreateRequest struct {
	Name        string
	Description string
	Schedule    string
	Tool        string
	Params      map[string]string
	Active      bool
}

// CreateOnDisk validates the request, writes events/<name>/EVENT.md together
// with an empty references/ directory, and registers the parsed definition.
// Nothing is written when validation fails, and a failed parse-back removes
// the partially created directory again.
func (r *Registry) CreateOnDisk(req CreateRequest) (Snapshot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Snapshot{}, fmt.Errorf("%w: name is required", event.ErrInvalidDefinition)
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return Snapshot{}, fmt.Errorf("%w: invalid event name %q", event.ErrInvalidDefinition, name)
	}
	if _, err := schedule.Parse(req.Schedule); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", event.ErrInvalidDefinition, err)
	}
	if strings.TrimSpace(req.Tool) == "" {
		return Snapshot{}, fmt.Errorf("%w: action tool is required", event.ErrInvalidDefinition)
	}

	r.mu.Lock()
	_, taken := r.events[name]
	r.mu.Unlock()
	if taken {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrEventExists, name)
	}

	dir := filepath.Join(r.root, name)
	if _, err := os.Stat(dir); err == nil {
		return Snapshot{}, fmt.Errorf("%w: directory %s", ErrEventExists, dir)
	} else if !os.IsNotExist(err) {
		return Snapshot{}, err
	}

	if err := os.MkdirAll(filepath.Join(dir, "references"), 0o755); err != nil {
		return Snapshot{}, err
	}
	path := filepath.Join(dir, event.DefinitionFile)
	if err := os.WriteFile(path, renderEventMD(req), 0o644); err != nil {
		os.RemoveAll(dir)
		return Snapshot{}, err
	}

	def, err := event.ParseDir(dir)
	if err != nil {
		os.RemoveAll(dir)
		return Snapshot{}, err
	}
	if err := r.Create(def); err != nil {
		os.RemoveAll(dir)
		return Snapshot{}, err
	}
	r.log.Info("event materialized", logx.String("event", name), logx.String("dir", dir))
	return r.Get(name)
}

// renderEventMD writes the canonical EVENT.md layout: YAML frontmatter
// followed by a short markdown body. Kept hand-rendered so the file stays
// readable and stable for humans editing it afterwards.
func renderEventMD(req CreateRequest) []byte {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "name: %s\n", yamlScalar(req.Name))
	if req.Description != "" {
		fmt.Fprintf(&b, "description: %s\n", yamlScalar(req.Description))
	}
	b.WriteString("type: scheduled\n")
	fmt.Fprintf(&b, "schedule: %s\n", yamlScalar(req.Schedule))
	fmt.Fprintf(&b, "active: %t\n", req.Active)
	b.WriteString("action:\n")
	fmt.Fprintf(&b, "  mcp: %s\n", yamlScalar(req.Tool))
	if len(req.Params) > 0 {
		b.WriteString("  params:\n")
		keys := make([]string, 0, len(req.Params))
		for k := range req.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "    %s: %s\n", k, yamlScalar(req.Params[k]))
		}
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", req.Name)
	if req.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", req.Description)
	}
	return []byte(b.String())
}

// yamlScalar quotes values that plain YAML scalars would mangle.
func yamlScalar(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, ":#\"'\n{}[]&*!|>%@`") || s != strings.TrimSpace(s) {
		return fmt.Sprintf("%q", s)
	}
	return s
}
