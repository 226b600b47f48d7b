package agents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/teemow/inboxpilot/internal/logging"
)

// ConfigStore persists one JSON file per agent identity.
//
// Saves are atomic (write-temp-then-rename) so a reader never observes a
// half-written file, and the read-increment-write cycle is guarded by a
// per-agent mutex so two concurrent saves cannot both claim the same
// version.
type ConfigStore struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConfigStore creates a store rooted at dir, creating it if needed.
func NewConfigStore(dir string, logger *slog.Logger) (*ConfigStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir %q: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigStore{
		dir:   dir,
		log:   logger,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *ConfigStore) lock(agentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[agentID] = l
	}
	return l
}

func (s *ConfigStore) path(agentID string) string {
	return filepath.Join(s.dir, agentID+".json")
}

// Load reads the persisted config for an agent. A missing or unreadable
// file is not fatal: the provided defaults are returned instead, so a
// corrupted config degrades to default behavior rather than a dead agent.
func (s *ConfigStore) Load(defaults *Config) *Config {
	path := s.path(defaults.AgentID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("unreadable agent config, using defaults",
				logging.Agent(defaults.AgentID), logging.Err(err))
		}
		return defaults.Clone()
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.log.Warn("corrupt agent config, using defaults",
			logging.Agent(defaults.AgentID), logging.Err(err))
		return defaults.Clone()
	}
	if cfg.AgentID == "" {
		cfg.AgentID = defaults.AgentID
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = map[string]float64{}
	}
	if cfg.Weights == nil {
		cfg.Weights = map[string]float64{}
	}
	if cfg.Metadata == nil {
		cfg.Metadata = map[string]any{}
	}
	return &cfg
}

// Save persists cfg, incrementing its version by exactly one. The write is
// atomic: the config is marshalled to a temp file in the same directory and
// renamed over the live file.
func (s *ConfigStore) Save(cfg *Config) error {
	l := s.lock(cfg.AgentID)
	l.Lock()
	defer l.Unlock()

	cfg.Version++

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		cfg.Version--
		return fmt.Errorf("marshal config for %s: %w", cfg.AgentID, err)
	}

	path := s.path(cfg.AgentID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		cfg.Version--
		return fmt.Errorf("write temp config for %s: %w", cfg.AgentID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		cfg.Version--
		_ = os.Remove(tmp)
		return fmt.Errorf("commit config for %s: %w", cfg.AgentID, err)
	}
	return nil
}
