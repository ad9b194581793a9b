package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"saas_stack/pkg/core/llm"

	"gopkg.in/yaml.v2"
)

// DefaultProvider is used when the config names no active provider.
const DefaultProvider = "gemini"

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Model       string `yaml:"model"`    // Optional model override
	Description string `yaml:"description"`
}

// LoadConfig reads the provider selection from a YAML file.
// A missing file yields the default configuration.
func LoadConfig(path string) (Config, error) {
	cfg := Config{ActiveProvider: DefaultProvider}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = DefaultProvider
	}
	return cfg, nil
}

type Manager struct {
	config    Config
	providers map[string]llm.Provider
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewManager creates a manager wired with the built-in providers.
func NewManager(config Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config: config,
		logger: logger,
		providers: map[string]llm.Provider{
			"gemini":   &llm.GeminiProvider{},
			"deepseek": llm.NewDeepSeekProvider(),
			"qwen":     llm.NewQwenProvider(),
		},
	}
}

// Register adds or replaces a provider under name
func (m *Manager) Register(name string, p llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
}

// GetProvider resolves the provider for an agent type.
// Agent-specific override first, then the global active provider.
func (m *Manager) GetProvider(agentType string) (llm.Provider, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p, agentConfig.Provider, nil
		}
	}

	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p, m.config.ActiveProvider, nil
	}
	return nil, "", fmt.Errorf("provider %s not found", m.config.ActiveProvider)
}

// ExecutePrompt handles instruction adaptation before sending to the model
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	provider, name, err := m.GetProvider(agentType)
	if err != nil {
		return "", err
	}

	opts := make(map[string]interface{}, len(options)+1)
	m.mu.RLock()
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Model != "" {
		opts[llm.OptModel] = agentConfig.Model
	}
	m.mu.RUnlock()
	for k, v := range options {
		opts[k] = v
	}

	m.logger.Debug("executing prompt", "agent", agentType, "provider", name)
	return provider.GenerateResponse(ctx, rawPrompt, provider.AdaptInstructions(rawSystemPrompt), opts)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	m.logger.Info("global provider switched", "provider", newProvider)
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists registered provider names, sorted
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
