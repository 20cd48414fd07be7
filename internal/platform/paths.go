package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DBFileName is the store file created in each project directory.
const DBFileName = "kanban.db"

// Paths holds the resolved locations for one invocation.
type Paths struct {
	ConfigDir  string
	ConfigPath string
	WorkDir    string
	DBPath     string
}

// Options selects the app name and project directory used for resolution.
type Options struct {
	AppName string
	DevMode bool
	WorkDir string
}

// DefaultPathsWithOptions resolves paths from the process environment.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = "kanban"
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	workDir := strings.TrimSpace(opts.WorkDir)
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return Paths{}, fmt.Errorf("working dir: %w", err)
		}
	}

	env := map[string]string{
		"XDG_CONFIG_HOME": os.Getenv("XDG_CONFIG_HOME"),
		"APPDATA":         os.Getenv("APPDATA"),
	}
	return PathsFor(runtime.GOOS, env, configDir, workDir, appName)
}

// PathsFor resolves paths for an explicit platform and environment.
func PathsFor(goos string, env map[string]string, userConfigDir, workDir, appName string) (Paths, error) {
	if userConfigDir == "" || workDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase := userConfigDir
	switch goos {
	case "linux":
		if v := env["XDG_CONFIG_HOME"]; v != "" {
			configBase = v
		}
	case "windows":
		if v := env["APPDATA"]; v != "" {
			configBase = v
		}
	default:
		// os.UserConfigDir already covers darwin and the rest.
	}

	appConfigDir := filepath.Join(configBase, appName)
	return Paths{
		ConfigDir:  appConfigDir,
		ConfigPath: filepath.Join(appConfigDir, "config.toml"),
		WorkDir:    filepath.Clean(workDir),
		DBPath:     ProjectDBPath(workDir),
	}, nil
}

// ProjectDBPath returns the store path scoped to one project directory.
func ProjectDBPath(workDir string) string {
	return filepath.Join(filepath.Clean(workDir), DBFileName)
}
