package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/zkrising/tachi-import-scripts/internal/config"
	"github.com/zkrising/tachi-import-scripts/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("TIS_API_TOKEN", "")
	t.Setenv("TIS_STAGING", "false")

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(homeDir, ".config", "tis", "config.toml"),
		baseDir:    base,
	}
	env.writeConfig(t)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) reloadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, _, err := config.Load(e.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// lr2Fixture writes LR2 databases holding one 7K and one 14K score.
func lr2Fixture(t *testing.T) (scorePath, chartPath string) {
	t.Helper()
	scores := []testsupport.LR2Score{
		{Hash: "h7", Clear: 4, Perfect: 100, Great: 50, MaxCombo: 120, MinBP: 3, OpBest: 21, Complete: 1},
		{Hash: "h14", Clear: 2, Perfect: 10, Great: 5, MaxCombo: 12, MinBP: 0, OpBest: 10, Complete: 1},
		{Hash: "hmissing", Clear: 3, MinBP: 1, Complete: 1},
	}
	songs := []testsupport.LR2Song{
		{Hash: "h7", Title: "Seven", Subtitle: "[ANOTHER]", Random: 0, Mode: 7},
		{Hash: "h14", Title: "Fourteen", Random: 0, Mode: 14},
	}
	return testsupport.LR2Databases(t, t.TempDir(), scores, songs)
}
