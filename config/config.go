// Package config loads the document-execution configuration surface:
// default provider/operation, per-provider sections, the environment map
// exported into @shell sessions, and the list of remote tool servers.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fractalic-run/fractalic/tree"
)

const (
	projectConfigName = "fractalic.yaml"
	homeConfigName    = "config.yaml"
)

// ProviderSection holds one LLM provider's settings.
type ProviderSection struct {
	Model        string   `yaml:"model"`
	APIKey       string   `yaml:"apiKey"`
	AllowTopP    *bool    `yaml:"allowTopP,omitempty"`
	AllowNonUnit *bool    `yaml:"allowNonUnitTemperature,omitempty"`
	StopSeqCap   int      `yaml:"stopSequenceCap,omitempty"`
	Tags         []string `yaml:"tags,omitempty"`
}

// MCPServer is one configured remote tool server endpoint.
type MCPServer struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
}

// Config is the full configuration surface.
type Config struct {
	DefaultProvider  string                      `yaml:"defaultProvider"`
	DefaultOperation tree.InsertMode             `yaml:"defaultOperation"`
	Providers        map[string]ProviderSection  `yaml:"providers"`
	ShellEnv         map[string]string           `yaml:"shellEnv"`
	MCPServers       []MCPServer                 `yaml:"mcpServers"`
	ToolsDir         string                      `yaml:"toolsDir,omitempty"`
	TimeoutsSeconds  map[string]int              `yaml:"timeoutsSeconds,omitempty"`
	OTLPEndpoint     string                      `yaml:"otlpEndpoint,omitempty"`
}

// Default returns a config with conservative built-in defaults, used when no
// config file is found.
func Default() *Config {
	return &Config{
		DefaultProvider:  "openai",
		DefaultOperation: tree.ModeAppend,
		Providers:        map[string]ProviderSection{},
		ShellEnv:         map[string]string{},
		ToolsDir:         "tools",
		TimeoutsSeconds: map[string]int{
			"shell": 300,
			"tool":  60,
			"llm":   180,
		},
	}
}

// Discover finds a config file using first-match semantics: an explicit
// path, then ./fractalic.yaml in cwd, then ~/.fractalic/config.yaml.
func Discover(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return discoverFrom(explicitPath, cwd, home)
}

func discoverFrom(explicitPath, cwd, home string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(home, ".fractalic", homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads and merges path over Default(), then applies environment
// variable overrides for secrets (FRACTALIC_<PROVIDER>_API_KEY).
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	// #nosec G304 -- path resolved via Discover from explicit/project/home locations.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	merge(cfg, &loaded)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func merge(base, overlay *Config) {
	if overlay.DefaultProvider != "" {
		base.DefaultProvider = overlay.DefaultProvider
	}
	if overlay.DefaultOperation != "" {
		base.DefaultOperation = overlay.DefaultOperation
	}
	for name, section := range overlay.Providers {
		base.Providers[name] = section
	}
	for k, v := range overlay.ShellEnv {
		base.ShellEnv[k] = v
	}
	if len(overlay.MCPServers) > 0 {
		base.MCPServers = overlay.MCPServers
	}
	if overlay.ToolsDir != "" {
		base.ToolsDir = overlay.ToolsDir
	}
	if overlay.OTLPEndpoint != "" {
		base.OTLPEndpoint = overlay.OTLPEndpoint
	}
	for k, v := range overlay.TimeoutsSeconds {
		base.TimeoutsSeconds[k] = v
	}
}

func applyEnvOverrides(cfg *Config) {
	for name, section := range cfg.Providers {
		envKey := "FRACTALIC_" + strings.ToUpper(name) + "_API_KEY"
		if v := os.Getenv(envKey); v != "" {
			section.APIKey = v
			cfg.Providers[name] = section
		}
	}
}

// IsOSeries reports whether model is one of the O-series models that reject
// top_p and non-unit temperature.
func IsOSeries(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}
