package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/config"
	"github.com/evanschultz/kanban/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// cliEnv isolates one CLI run from the user's config and working directory.
type cliEnv struct {
	dir    string
	dbPath string
}

// newCLIEnv points config, db, and dev mode at a temp dir and swaps fang for plain cobra.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("APPDATA", filepath.Join(dir, "config"))
	t.Setenv("KANBAN_CONFIG", "")
	t.Setenv("KANBAN_DB_PATH", "")
	t.Setenv("KANBAN_APP_NAME", "")
	t.Setenv("KANBAN_DEV_MODE", "false")

	prev := executeRoot
	executeRoot = func(ctx context.Context, root *cobra.Command) error {
		return root.ExecuteContext(ctx)
	}
	t.Cleanup(func() { executeRoot = prev })

	return cliEnv{dir: dir, dbPath: filepath.Join(dir, "kanban.db")}
}

// run executes one command against the env's store and returns stdout.
func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--db", e.dbPath}, args...)
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

// mustRun executes one command and fails the test on error.
func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return out
}

// expectRun executes one command and compares its full stdout.
func (e cliEnv) expectRun(t *testing.T, want string, args ...string) {
	t.Helper()
	if got := e.mustRun(t, args...); got != want {
		t.Fatalf("run(%v) = %q, want %q", args, got, want)
	}
}

// runPaths executes the root command without the env's --db flag.
func runPaths(t *testing.T, args ...string) string {
	t.Helper()
	var stdout bytes.Buffer
	if err := run(context.Background(), args, &stdout, nil); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return stdout.String()
}

func TestCLITaskLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	env.expectRun(t, "No tasks found.\n", "list")
	env.expectRun(t, "Added task: Write report (#1)\n", "add", "Write report")
	env.expectRun(t, "Added task: Review draft (#2)\n", "add", "Review draft", "-d", "check tables")

	env.expectRun(t, "ID: 1 | [TODO] Write report\nID: 2 | [TODO] Review draft\n", "list")

	env.expectRun(t, "Moved task 1 to doing\n", "move", "1", "DOING")
	env.expectRun(t, "ID: 1 | [DOING] Write report\n", "list", "--status", "doing")

	env.expectRun(t, "Deleted task 1\n", "delete", "1")
	env.expectRun(t, "ID: 2 | [TODO] Review draft\n", "list")

	// ids are never reused
	env.expectRun(t, "Added task: Next (#3)\n", "add", "Next")
}

func TestCLIRejectsInvalidInput(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "Write report")

	_, err := env.run(t, "move", "1", "blocked")
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("move blocked error = %v, want ErrInvalidStatus", err)
	}
	if !strings.Contains(err.Error(), `invalid status "blocked"`) {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	env.expectRun(t, "ID: 1 | [TODO] Write report\n", "list")

	if _, err := env.run(t, "add", "   "); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("add blank error = %v, want ErrInvalidTitle", err)
	}
	if _, err := env.run(t, "list", "--status", "later"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("list later error = %v, want ErrInvalidStatus", err)
	}
	if _, err := env.run(t, "delete", "abc"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("delete abc error = %v, want ErrInvalidID", err)
	}
}

func TestCLIMissingTaskIsNotFound(t *testing.T) {
	env := newCLIEnv(t)

	for _, args := range [][]string{
		{"move", "9", "done"},
		{"delete", "9"},
		{"show", "9"},
	} {
		out, err := env.run(t, args...)
		if !errors.Is(err, app.ErrNotFound) {
			t.Fatalf("run(%v) error = %v, want ErrNotFound", args, err)
		}
		if err.Error() != "task 9 not found" {
			t.Fatalf("run(%v) error text = %q", args, err.Error())
		}
		if out != "" {
			t.Fatalf("run(%v) stdout = %q, want empty", args, out)
		}
	}
}

func TestCLIJSONExport(t *testing.T) {
	env := newCLIEnv(t)
	env.expectRun(t, "[]\n", "json")

	env.mustRun(t, "add", "Write report")
	env.mustRun(t, "add", "Review", "--desc", "tables")
	env.mustRun(t, "move", "2", "done")

	var rows []map[string]any
	if err := json.Unmarshal([]byte(env.mustRun(t, "json")), &rows); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %#v", rows)
	}
	if rows[0]["id"] != float64(1) || rows[0]["description"] != nil || rows[0]["status"] != "todo" {
		t.Fatalf("unexpected first row %#v", rows[0])
	}
	if rows[1]["description"] != "tables" || rows[1]["status"] != "done" {
		t.Fatalf("unexpected second row %#v", rows[1])
	}

	createdAt, ok := rows[0]["created_at"].(string)
	if !ok {
		t.Fatalf("created_at = %#v, want string", rows[0]["created_at"])
	}
	if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
		t.Fatalf("created_at %q is not RFC3339: %v", createdAt, err)
	}
}

// stubProgram records the model handed to the board program.
type stubProgram struct {
	model tea.Model
	runs  *int
}

func (p stubProgram) Run() (tea.Model, error) {
	*p.runs++
	return p.model, nil
}

func TestCLIViewAcceptsWatchFlag(t *testing.T) {
	env := newCLIEnv(t)
	runs := 0
	prev := programFactory
	programFactory = func(m tea.Model) program {
		return stubProgram{model: m, runs: &runs}
	}
	t.Cleanup(func() { programFactory = prev })

	env.mustRun(t, "view")
	env.mustRun(t, "view", "--watch")
	env.mustRun(t, "view", "-w")
	if runs != 3 {
		t.Fatalf("program runs = %d, want 3", runs)
	}
}

func TestCLIBoardRender(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "Write report")
	env.mustRun(t, "add", "Ship")
	env.mustRun(t, "move", "2", "done")

	out := ansi.Strip(env.mustRun(t, "board", "--width", "90"))
	for _, want := range []string{"Todo (1)", "Doing (0)", "Done (1)", "#1 Write report", "(empty)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in board:\n%s", want, out)
		}
	}
}

func TestCLIShowRendersDescription(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "Write report", "-d", "Numbers for **Q3**")
	env.mustRun(t, "add", "Bare")

	out := ansi.Strip(env.mustRun(t, "show", "1"))
	if !strings.HasPrefix(out, "#1 Write report\nstatus:  todo\ncreated: ") {
		t.Fatalf("unexpected show header:\n%s", out)
	}
	if !strings.Contains(out, "Numbers for") || !strings.Contains(out, "Q3") {
		t.Fatalf("expected rendered description:\n%s", out)
	}
	if out := env.mustRun(t, "show", "2"); !strings.Contains(out, "(no description)") {
		t.Fatalf("expected no description marker:\n%s", out)
	}
}

func TestCLIHistory(t *testing.T) {
	env := newCLIEnv(t)
	env.expectRun(t, "No activity recorded.\n", "history")

	env.mustRun(t, "add", "Write report")
	env.mustRun(t, "move", "1", "doing")
	env.mustRun(t, "delete", "1")

	lines := strings.Split(strings.TrimSpace(env.mustRun(t, "history")), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 history lines, got %q", lines)
	}
	if !strings.Contains(lines[0], "delete") {
		t.Fatalf("expected delete first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "todo -> doing") {
		t.Fatalf("expected move second, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "create") || !strings.Contains(lines[2], "Write report [todo]") {
		t.Fatalf("expected create last, got %q", lines[2])
	}

	limited := strings.Split(strings.TrimSpace(env.mustRun(t, "history", "--limit", "1")), "\n")
	if len(limited) != 1 {
		t.Fatalf("expected 1 limited line, got %q", limited)
	}
}

// writeTree creates files under root from a relative path -> content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
}

func TestCLIScan(t *testing.T) {
	env := newCLIEnv(t)
	src := filepath.Join(env.dir, "src")
	writeTree(t, src, map[string]string{
		"app.py":              "x = 1\n# TODO: add retries\n",
		"notes/plan.md":       "#REVIEW: check wording\n",
		"node_modules/dep.js": "// #TODO: ignored\n",
		"image.png":           "#TODO: wrong extension\n",
		"scripts/build.sh":    "#DRAFT: release notes\n",
	})

	env.expectRun(t, "[TODO] app.py:2 add retries\n[DOING] notes/plan.md:1 check wording\n[DOING] scripts/build.sh:1 release notes\n", "scan", src)

	var markers []map[string]any
	if err := json.Unmarshal([]byte(env.mustRun(t, "scan", src, "--format", "json")), &markers); err != nil {
		t.Fatalf("Unmarshal(json) error = %v", err)
	}
	if len(markers) != 3 || markers[0]["source_file"] != "app.py" || markers[0]["line_number"] != float64(2) {
		t.Fatalf("unexpected json markers %#v", markers)
	}

	var yamlMarkers []map[string]any
	if err := yaml.Unmarshal([]byte(env.mustRun(t, "scan", src, "-f", "yaml")), &yamlMarkers); err != nil {
		t.Fatalf("Unmarshal(yaml) error = %v", err)
	}
	if len(yamlMarkers) != 3 || yamlMarkers[1]["status"] != "doing" {
		t.Fatalf("unexpected yaml markers %#v", yamlMarkers)
	}

	if _, err := os.Stat(env.dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read-only scan created the store: stat error = %v", err)
	}

	if _, err := env.run(t, "scan", src, "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}

	if out := env.mustRun(t, "scan", src, "--import"); !strings.Contains(out, "Imported 3 tasks\n") {
		t.Fatalf("unexpected import output %q", out)
	}
	env.expectRun(t, "ID: 1 | [TODO] add retries\nID: 2 | [DOING] check wording\nID: 3 | [DOING] release notes\n", "list")
}

func TestCLIPathsPrecedence(t *testing.T) {
	env := newCLIEnv(t)
	configPath := filepath.Join(env.dir, "custom.toml")
	if err := os.WriteFile(configPath, []byte("[database]\npath = \"/from/config.db\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out := runPaths(t, "--config", configPath, "paths")
	if !strings.Contains(out, "config: "+configPath+"\n") || !strings.Contains(out, "db: /from/config.db\n") {
		t.Fatalf("expected config file paths, got:\n%s", out)
	}

	t.Setenv("KANBAN_DB_PATH", "/from/env.db")
	if out := runPaths(t, "--config", configPath, "paths"); !strings.Contains(out, "db: /from/env.db\n") {
		t.Fatalf("expected env db path, got:\n%s", out)
	}
	if out := runPaths(t, "--config", configPath, "--db", "/from/flag.db", "paths"); !strings.Contains(out, "db: /from/flag.db\n") {
		t.Fatalf("expected flag db path, got:\n%s", out)
	}

	t.Setenv("KANBAN_DB_PATH", "")
	t.Setenv("KANBAN_CONFIG", configPath)
	if out := runPaths(t, "paths"); !strings.Contains(out, "config: "+configPath+"\n") {
		t.Fatalf("expected env config path, got:\n%s", out)
	}
}

func TestCLIInitWritesDefaultConfigOnce(t *testing.T) {
	env := newCLIEnv(t)
	configPath := filepath.Join(env.dir, "cfg", "config.toml")

	if out := runPaths(t, "--config", configPath, "init"); out != "Wrote config to "+configPath+"\n" {
		t.Fatalf("first init = %q", out)
	}

	cfg, err := config.Load(configPath, config.Default("/work/kanban.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/work/kanban.db" || cfg.Server.HTTPBind != "127.0.0.1:5437" {
		t.Fatalf("unexpected written config %#v", cfg)
	}

	if out := runPaths(t, "--config", configPath, "init"); out != "Config already exists at "+configPath+"\n" {
		t.Fatalf("second init = %q", out)
	}
}

func TestCLIRejectsInvalidConfig(t *testing.T) {
	env := newCLIEnv(t)
	configPath := filepath.Join(env.dir, "bad.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := env.run(t, "--config", configPath, "list")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load config error, got %v", err)
	}
}

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID(" 12 ")
	if err != nil || id != 12 {
		t.Fatalf("parseTaskID(12) = %d, %v", id, err)
	}

	for _, raw := range []string{"0", "-3", "x", ""} {
		if _, err := parseTaskID(raw); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("parseTaskID(%q) error = %v, want ErrInvalidID", raw, err)
		}
	}
}
