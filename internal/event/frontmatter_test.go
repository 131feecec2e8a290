package event

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/HadjievK/event-driven-agent/internal/schedule"
)

const sampleEventMD = `---
name: send-team-mail
description: Weekly status mail to the team.
type: scheduled
schedule: every Friday at 9 AM
active: true
action:
  mcp: mail_send
  params:
    to: references/recipients.txt
    body: references/template.md
    subject: Weekly status
---

# send-team-mail

Sends the weekly status mail.
`

func writeEventDir(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, "references"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefinitionFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestParseDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dir := writeEventDir(t, root, "send-team-mail", sampleEventMD)

	def, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir: %v", err)
	}
	if def.Name != "send-team-mail" {
		t.Fatalf("Name = %q", def.Name)
	}
	if !def.Active {
		t.Fatal("expected active flag from frontmatter")
	}
	if def.Rule.Kind != schedule.KindWeekly {
		t.Fatalf("Rule.Kind = %v, want weekly", def.Rule.Kind)
	}
	if def.Action.Tool != "mail_send" {
		t.Fatalf("Tool = %q", def.Action.Tool)
	}
	want := map[string]Param{
		"to":      {Kind: ParamFileRef, Value: "references/recipients.txt"},
		"body":    {Kind: ParamFileRef, Value: "references/template.md"},
		"subject": {Kind: ParamLiteral, Value: "Weekly status"},
	}
	if !reflect.DeepEqual(def.Action.Params, want) {
		t.Fatalf("Params = %#v, want %#v", def.Action.Params, want)
	}
}

func TestParseNameFallsBackToDirName(t *testing.T) {
	t.Parallel()
	md := "---\ntype: scheduled\nschedule: every 5 minutes\naction:\n  mcp: log_message\n---\nbody\n"
	def, err := Parse(md, "/events/heartbeat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Name != "heartbeat" {
		t.Fatalf("Name = %q, want heartbeat", def.Name)
	}
	if def.Active {
		t.Fatal("events default to inactive")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		md   string
	}{
		{"no frontmatter", "# just markdown\n"},
		{"unclosed frontmatter", "---\ntype: scheduled\n"},
		{"missing type", "---\nschedule: every 5 minutes\naction:\n  mcp: x\n---\n"},
		{"unsupported type", "---\ntype: manual\nschedule: every 5 minutes\naction:\n  mcp: x\n---\n"},
		{"missing schedule", "---\ntype: scheduled\naction:\n  mcp: x\n---\n"},
		{"bad schedule", "---\ntype: scheduled\nschedule: when the mood strikes\naction:\n  mcp: x\n---\n"},
		{"missing tool", "---\ntype: scheduled\nschedule: every 5 minutes\naction:\n  params: {}\n---\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.md, "/events/bad"); !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got %v", err)
			}
		})
	}
}

func TestClassifyParamContainment(t *testing.T) {
	t.Parallel()
	dir := "/events/demo"
	cases := []struct {
		value string
		kind  ParamKind
	}{
		{"references/recipients.txt", ParamFileRef},
		{"references/template.md", ParamFileRef},
		{"plain literal text", ParamLiteral},
		{"no-extension-path/ref", ParamLiteral},
		{"../../etc/passwd.txt", ParamLiteral},
		{"/etc/secrets.txt", ParamLiteral},
	}
	for _, tc := range cases {
		got := classifyParam(tc.value, dir)
		if got.Kind != tc.kind {
			t.Fatalf("classifyParam(%q) kind = %v, want %v", tc.value, got.Kind, tc.kind)
		}
	}
}

func TestScanSkipsBrokenDefinitions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeEventDir(t, root, "good", sampleEventMD)
	writeEventDir(t, root, "broken", "---\ntype: scheduled\nschedule: nonsense\naction:\n  mcp: x\n---\n")
	// a directory without EVENT.md is simply ignored
	if err := os.MkdirAll(filepath.Join(root, "not-an-event"), 0o755); err != nil {
		t.Fatal(err)
	}

	defs, probs, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "send-team-mail" {
		t.Fatalf("defs = %+v", defs)
	}
	if len(probs) != 1 || !errors.Is(probs[0].Err, ErrInvalidDefinition) {
		t.Fatalf("probs = %+v", probs)
	}
}

func TestParseRecipients(t *testing.T) {
	t.Parallel()
	got := ParseRecipients("# comment\n\na@x.com\nb@x.com\n")
	want := []string{"a@x.com", "b@x.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseRecipients = %v, want %v", got, want)
	}
}
