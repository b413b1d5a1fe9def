package install

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readSettings(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("settings are not JSON: %v", err)
	}
	return m
}

func TestInstallCreatesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")
	inst := Installer{Path: path, Command: HookCommand("/usr/local/bin/aitrack")}

	changed, err := inst.Install()
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !changed {
		t.Fatal("expected Install to report a change")
	}
	if !inst.IsInstalled() {
		t.Fatal("IsInstalled should be true after Install")
	}

	m := readSettings(t, path)
	groups := m["hooks"].(map[string]any)[Event].([]any)
	if len(groups) != 1 {
		t.Fatalf("got %d hook groups, want 1", len(groups))
	}
	g := groups[0].(map[string]any)
	if g["matcher"] != Matcher {
		t.Errorf("matcher: got %v", g["matcher"])
	}
	h := g["hooks"].([]any)[0].(map[string]any)
	if h["command"] != "/usr/local/bin/aitrack hook" || h["type"] != "command" {
		t.Errorf("unexpected hook entry: %v", h)
	}
}

func TestInstallIsIdempotentAndPreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	existing := `{
  "model": "opus",
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "guard"}]}],
    "PostToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "audit"}]}]
  }
}`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}
	inst := Installer{Path: path, Command: HookCommand("/opt/bin/aitrack")}

	if _, err := inst.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	changed, err := inst.Install()
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if changed {
		t.Error("second Install should be a no-op")
	}

	m := readSettings(t, path)
	if m["model"] != "opus" {
		t.Errorf("model key lost: %v", m["model"])
	}
	hooks := m["hooks"].(map[string]any)
	if _, ok := hooks["PreToolUse"]; !ok {
		t.Error("PreToolUse hooks lost")
	}
	if n := len(hooks[Event].([]any)); n != 2 {
		t.Errorf("PostToolUse groups: got %d, want 2", n)
	}
}

func TestUninstallRemovesOnlyOwnEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	existing := `{"hooks": {"PostToolUse": [
		{"matcher": "Bash", "hooks": [{"type": "command", "command": "audit"}]},
		{"matcher": "Edit|Write", "hooks": [{"type": "command", "command": "\"/Applications/My Tools/aitrack\" hook"}]}
	]}}`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}
	inst := Installer{Path: path}

	if !inst.IsInstalled() {
		t.Fatal("quoted executable path should be recognized")
	}
	removed, err := inst.Uninstall()
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if !removed {
		t.Fatal("expected Uninstall to remove the entry")
	}
	if inst.IsInstalled() {
		t.Error("IsInstalled should be false after Uninstall")
	}

	groups := readSettings(t, path)["hooks"].(map[string]any)[Event].([]any)
	if len(groups) != 1 || groups[0].(map[string]any)["matcher"] != "Bash" {
		t.Errorf("unexpected remaining groups: %v", groups)
	}
}

func TestUninstallWhenAbsent(t *testing.T) {
	inst := Installer{Path: filepath.Join(t.TempDir(), "settings.json")}
	removed, err := inst.Uninstall()
	if err != nil || removed {
		t.Fatalf("Uninstall = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestInstallRejectsMalformedSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (Installer{Path: path, Command: "aitrack hook"}).Install(); err == nil {
		t.Fatal("expected an error for malformed settings")
	}
	// The original file is left untouched.
	data, _ := os.ReadFile(path)
	if string(data) != "{oops" {
		t.Errorf("settings were modified: %q", data)
	}
}

func TestHookCommandQuotesSpaces(t *testing.T) {
	if got := HookCommand("/a b/aitrack"); got != `"/a b/aitrack" hook` {
		t.Errorf("got %q", got)
	}
}

func TestSettingsPathHonoursConfigDir(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", "/etc/claude")
	p, err := SettingsPath()
	if err != nil {
		t.Fatal(err)
	}
	if p != "/etc/claude/settings.json" {
		t.Errorf("got %q", p)
	}
}

func TestInstallerRecognizesExactCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	inst := Installer{Path: path, Command: "/tmp/go-build/cmd.test hook"}

	if _, err := inst.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !inst.IsInstalled() {
		t.Fatal("an installer should recognize its own command")
	}
	if (Installer{Path: path}).IsInstalled() {
		t.Error("a foreign command should not match the aitrack pattern")
	}
	removed, err := inst.Uninstall()
	if err != nil || !removed {
		t.Fatalf("Uninstall = (%v, %v), want (true, nil)", removed, err)
	}
	if _, ok := readSettings(t, path)["hooks"]; ok {
		t.Error("empty hooks object should be removed")
	}
}

func TestInstallKeepsExistingValuesVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	existing := `{"cleanupPeriodDays": 30, "ratio": 0.1, "hooks": {"Stop": [{"hooks": [{"type": "command", "command": "make fmt && echo <done>"}]}]}}`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (Installer{Path: path, Command: "/bin/aitrack hook"}).Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`"make fmt && echo <done>"`, `"cleanupPeriodDays": 30`, `"ratio": 0.1`} {
		if !strings.Contains(out, want) {
			t.Errorf("settings should contain %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, `\u0026`) || strings.Contains(out, `\u003c`) {
		t.Errorf("settings were HTML-escaped:\n%s", out)
	}
}
