package platform

import (
	"path/filepath"
	"testing"
)

// TestPathsForLinuxWithXDG verifies XDG config placement and the project-local store.
func TestPathsForLinuxWithXDG(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
	}, "/fallback/config", "/work/proj", "kanban")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join("/xdg/config", "kanban", "config.toml")
	wantDB := filepath.Join("/work/proj", "kanban.db")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DBPath != wantDB {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
	if p.ConfigDir != filepath.Join("/xdg/config", "kanban") {
		t.Fatalf("unexpected config dir %q", p.ConfigDir)
	}
}

// TestPathsForWindowsUsesAppData verifies APPDATA wins over the fallback config dir.
func TestPathsForWindowsUsesAppData(t *testing.T) {
	p, err := PathsFor("windows", map[string]string{
		"APPDATA": `C:\Users\me\AppData\Roaming`,
	}, `C:\fallback\config`, `C:\work`, "kanban")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join(`C:\Users\me\AppData\Roaming`, "kanban", "config.toml")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
}

func TestPathsForEmptyInputsFail(t *testing.T) {
	if _, err := PathsFor("darwin", nil, "", "/work", "kanban"); err == nil {
		t.Fatal("expected error for empty config dir")
	}
	if _, err := PathsFor("darwin", nil, "/cfg", "", "kanban"); err == nil {
		t.Fatal("expected error for empty work dir")
	}
	if _, err := PathsFor("darwin", nil, "/cfg", "/work", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

// TestPathsForDarwinIgnoresXDG verifies macOS keeps the user config dir.
func TestPathsForDarwinIgnoresXDG(t *testing.T) {
	p, err := PathsFor("darwin", map[string]string{
		"XDG_CONFIG_HOME": "/ignored",
	}, "/Users/me/Library/Application Support", "/Users/me/src/app", "kanban")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join("/Users/me/Library/Application Support", "kanban", "config.toml")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
}

// TestProjectDBPathIsPerDirectory verifies each directory gets its own store file.
func TestProjectDBPathIsPerDirectory(t *testing.T) {
	a := ProjectDBPath("/work/a/")
	b := ProjectDBPath("/work/b")
	if a == b {
		t.Fatalf("expected distinct db paths, got %q", a)
	}
	if a != filepath.Join("/work/a", DBFileName) {
		t.Fatalf("unexpected db path %q", a)
	}
}

// TestDefaultPathsWithOptionsDevMode verifies the dev suffix and explicit work dir.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	work := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(work, "cfg"))
	p, err := DefaultPathsWithOptions(Options{AppName: "kanban", DevMode: true, WorkDir: work})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(p.ConfigDir) != "kanban-dev" {
		t.Fatalf("expected dev config dir, got %q", p.ConfigDir)
	}
	if p.DBPath != filepath.Join(work, DBFileName) {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}
