// Package install registers the aitrack hook in the agent host's settings
// file so it runs after every Edit and Write tool call.
package install

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Event is the host lifecycle event the hook is attached to.
	Event = "PostToolUse"
	// Matcher selects the tools the hook fires for.
	Matcher = "Edit|Write"
)

// SettingsPath returns the host settings file: $CLAUDE_CONFIG_DIR/settings.json
// or ~/.claude/settings.json.
func SettingsPath() (string, error) {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "settings.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// Installer edits one settings file. Keys it does not own are preserved.
type Installer struct {
	Path    string // settings.json location
	Command string // e.g. "/usr/local/bin/aitrack hook"
}

// HookCommand returns the command line the host should run for exe.
func HookCommand(exe string) string {
	if strings.ContainsAny(exe, " \t") {
		exe = `"` + exe + `"`
	}
	return exe + " hook"
}

// Install adds the hook entry. It reports false when an aitrack hook is
// already registered.
func (i Installer) Install() (bool, error) {
	settings, err := i.load()
	if err != nil {
		return false, err
	}
	groups := postToolUse(settings)
	for _, g := range groups {
		if i.hasOwnHook(g) {
			return false, nil
		}
	}
	groups = append(groups, map[string]any{
		"matcher": Matcher,
		"hooks": []any{
			map[string]any{"type": "command", "command": i.Command},
		},
	})
	setPostToolUse(settings, groups)
	return true, i.save(settings)
}

// Uninstall removes every aitrack hook entry. It reports whether anything was
// removed.
func (i Installer) Uninstall() (bool, error) {
	settings, err := i.load()
	if err != nil {
		return false, err
	}
	removed := false
	var kept []any
	for _, raw := range postToolUse(settings) {
		g, ok := raw.(map[string]any)
		if !ok {
			kept = append(kept, raw)
			continue
		}
		hooks, _ := g["hooks"].([]any)
		var rest []any
		for _, h := range hooks {
			if i.isOwnHook(h) {
				removed = true
				continue
			}
			rest = append(rest, h)
		}
		if len(hooks) > 0 {
			if len(rest) == 0 {
				continue
			}
			g["hooks"] = rest
		}
		kept = append(kept, g)
	}
	if !removed {
		return false, nil
	}
	setPostToolUse(settings, kept)
	return true, i.save(settings)
}

// IsInstalled reports whether an aitrack hook entry is present.
func (i Installer) IsInstalled() bool {
	settings, err := i.load()
	if err != nil {
		return false
	}
	for _, g := range postToolUse(settings) {
		if i.hasOwnHook(g) {
			return true
		}
	}
	return false
}

func (i Installer) load() (map[string]any, error) {
	data, err := os.ReadFile(i.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	settings := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return settings, nil
	}
	// UseNumber keeps numeric values byte-for-byte.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&settings); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", i.Path, err)
	}
	return settings, nil
}

// save writes settings atomically via a temp file + os.Rename.
func (i Installer) save(settings map[string]any) (err error) {
	// Commands such as "a && b" must come back unescaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	data := buf.Bytes()

	dir := filepath.Dir(i.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(dir, "settings-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err = os.Rename(tmpName, i.Path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

func postToolUse(settings map[string]any) []any {
	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		return nil
	}
	groups, _ := hooks[Event].([]any)
	return groups
}

func setPostToolUse(settings map[string]any, groups []any) {
	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}
	if len(groups) == 0 {
		delete(hooks, Event)
		if len(hooks) == 0 {
			delete(settings, "hooks")
		}
		return
	}
	hooks[Event] = groups
}

func (i Installer) hasOwnHook(group any) bool {
	g, ok := group.(map[string]any)
	if !ok {
		return false
	}
	hooks, _ := g["hooks"].([]any)
	for _, h := range hooks {
		if i.isOwnHook(h) {
			return true
		}
	}
	return false
}

// isOwnHook matches i.Command exactly, or any command of the form
// "<.../aitrack> hook".
func (i Installer) isOwnHook(h any) bool {
	m, ok := h.(map[string]any)
	if !ok {
		return false
	}
	cmd, _ := m["command"].(string)
	cmd = strings.TrimSpace(cmd)
	if i.Command != "" && cmd == i.Command {
		return true
	}
	if !strings.HasSuffix(cmd, " hook") {
		return false
	}
	exe := strings.Trim(strings.TrimSpace(strings.TrimSuffix(cmd, " hook")), `"`)
	return filepath.Base(exe) == "aitrack"
}
