package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LLMFLOW_MODEL", "")

	path := writeConfig(t, t.TempDir(), "config.yaml", `
anthropic:
  api_key: file-key
  use_bedrock: true
  aws_region: us-west-2
  aws_profile: work
defaults:
  model: claude-haiku-4-5-20251001
  max_workers: 8
  max_output_tokens: 4096
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "file-key" {
		t.Errorf("api_key = %q, want %q", cfg.Anthropic.APIKey, "file-key")
	}
	if !cfg.Anthropic.UseBedrock {
		t.Error("use_bedrock = false, want true")
	}
	if cfg.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("aws_region = %q, want %q", cfg.Anthropic.AWSRegion, "us-west-2")
	}
	if cfg.Anthropic.AWSProfile != "work" {
		t.Errorf("aws_profile = %q, want %q", cfg.Anthropic.AWSProfile, "work")
	}
	if cfg.Defaults.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %q, want %q", cfg.Defaults.Model, "claude-haiku-4-5-20251001")
	}
	if cfg.Defaults.MaxWorkers != 8 {
		t.Errorf("max_workers = %d, want 8", cfg.Defaults.MaxWorkers)
	}
	if cfg.Defaults.MaxOutputTokens != 4096 {
		t.Errorf("max_output_tokens = %d, want 4096", cfg.Defaults.MaxOutputTokens)
	}
}

func TestLoadFromPathDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LLMFLOW_MODEL", "")

	path := writeConfig(t, t.TempDir(), "config.yaml", "anthropic:\n  api_key: k\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.UseBedrock {
		t.Error("use_bedrock should default to false")
	}
	if cfg.Defaults.Model != "" {
		t.Errorf("model should default to empty, got %q", cfg.Defaults.Model)
	}
	if cfg.Defaults.MaxWorkers != 0 {
		t.Errorf("max_workers should default to 0, got %d", cfg.Defaults.MaxWorkers)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("LLMFLOW_MODEL", "env-model")

	path := writeConfig(t, t.TempDir(), "config.yaml", `
anthropic:
  api_key: file-key
defaults:
  model: file-model
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "env-key" {
		t.Errorf("api_key = %q, want environment value", cfg.Anthropic.APIKey)
	}
	if cfg.Defaults.Model != "env-model" {
		t.Errorf("model = %q, want environment value", cfg.Defaults.Model)
	}
}

func TestExpandsAPIKeyReference(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LLMFLOW_VAULT_KEY", "from-vault")

	path := writeConfig(t, t.TempDir(), "config.yaml", "anthropic:\n  api_key: ${LLMFLOW_VAULT_KEY}\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "from-vault" {
		t.Errorf("api_key = %q, want expanded reference", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestProjectConfigDiscovery(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LLMFLOW_MODEL", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := t.TempDir()
	writeConfig(t, root, ".llmflow.yaml", "defaults:\n  model: project-model\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Defaults.Model != "project-model" {
		t.Errorf("model = %q, want value from project config found in a parent directory", cfg.Defaults.Model)
	}
}

func TestProjectConfigOverridesUserConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LLMFLOW_MODEL", "")

	xdg := t.TempDir()
	if err := os.MkdirAll(filepath.Join(xdg, "llmflow"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, filepath.Join(xdg, "llmflow"), "config.yaml", `
anthropic:
  api_key: user-key
defaults:
  model: user-model
`)
	t.Setenv("XDG_CONFIG_HOME", xdg)

	project := t.TempDir()
	writeConfig(t, project, ".llmflow.yaml", "defaults:\n  model: project-model\n")

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Defaults.Model != "project-model" {
		t.Errorf("model = %q, want project value to win", cfg.Defaults.Model)
	}
	if cfg.Anthropic.APIKey != "user-key" {
		t.Errorf("api_key = %q, want user value to survive the merge", cfg.Anthropic.APIKey)
	}
}
