package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher opens document and cover URLs in an external application.
// PDF rendering itself is always delegated to the viewer.
type Launcher struct {
	command string   // configured viewer command, empty for auto-detection
	args    []string // additional arguments for the viewer
	logger  *slog.Logger

	// run starts a command; replaced in tests
	run func(name string, args ...string) error
	// lookPath resolves a command in PATH; replaced in tests
	lookPath func(file string) (string, error)
}

// launchPath defines a single way to launch a viewer
type launchPath struct {
	path      string   // Command path: "zathura", or "open-a:AppName"
	openFlags []string // For "open-a:" paths only - flags for macOS open command
}

// viewers registry. Only viewers that accept a URL argument are listed.
var viewers = map[string]map[string][]launchPath{
	"zathura":    {"linux": {{path: "zathura"}}},
	"evince":     {"linux": {{path: "evince"}}},
	"okular":     {"linux": {{path: "okular"}}},
	"firefox":    {"linux": {{path: "firefox"}}, "darwin": {{path: "open-a:Firefox"}}, "windows": {{path: "firefox"}}},
	"skim":       {"darwin": {{path: "open-a:Skim", openFlags: []string{"-n"}}}},
	"sumatrapdf": {"windows": {{path: "SumatraPDF.exe"}}},
}

// candidateViewers defines the preferred viewer order for each platform
var candidateViewers = map[string][]string{
	"darwin":  {"skim"},
	"linux":   {"zathura", "okular", "evince", "firefox"},
	"windows": {"sumatrapdf", "firefox"},
}

// NewLauncher creates a new Launcher
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		logger:   logger,
		run:      startCommand,
		lookPath: exec.LookPath,
	}
}

func startCommand(name string, args ...string) error {
	return exec.Command(name, args...).Start() // Start async, don't wait
}

// Open shows url in the configured viewer, a detected viewer, or the system default
func (l *Launcher) Open(url string) error {
	if url == "" {
		return fmt.Errorf("nothing to open")
	}

	// Tier 1: User configured a specific viewer
	if l.command != "" {
		args := append(append([]string{}, l.args...), url)
		l.logger.Info("opening with configured viewer", "command", l.command)
		return l.run(l.command, args...)
	}

	// Tier 2: Try candidate chain
	if name, err := l.detectAndOpen(url); err == nil {
		l.logger.Info("opened with detected viewer", "viewer", name)
		return nil
	}

	// Tier 3: Fall back to system default (open/xdg-open/start)
	return l.openDefault(url)
}

// detectAndOpen tries candidate viewers in order. Returns the viewer that succeeded.
func (l *Launcher) detectAndOpen(url string) (string, error) {
	candidates, ok := candidateViewers[runtime.GOOS]
	if !ok {
		candidates = candidateViewers["linux"] // default
	}

	for _, name := range candidates {
		paths, ok := viewers[name][runtime.GOOS]
		if !ok {
			continue
		}
		for _, lp := range paths {
			var err error
			if app, isApp := strings.CutPrefix(lp.path, "open-a:"); isApp {
				args := append(append([]string{}, lp.openFlags...), "-a", app, url)
				err = l.run("open", args...)
			} else if _, err = l.lookPath(lp.path); err == nil {
				err = l.run(lp.path, url)
			}
			if err == nil {
				return name, nil
			}
			l.logger.Debug("viewer not available", "viewer", name, "path", lp.path, "error", err)
		}
	}
	return "", fmt.Errorf("no candidate viewers found")
}

// openDefault opens the URL using the system default handler
func (l *Launcher) openDefault(url string) error {
	l.logger.Info("opening with system default", "os", runtime.GOOS)

	switch runtime.GOOS {
	case "darwin":
		return l.run("open", url)
	case "windows":
		return l.run("cmd", "/c", "start", "", url)
	default:
		// Linux and other Unix-like systems
		return l.run("xdg-open", url)
	}
}
