package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/events"
)

// Manager owns the live configuration: load, hot reload, and persistence of
// admin-driven updates.
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	lastMod    time.Time
	stopCh     chan struct{}
	stopOnce   sync.Once
	publisher  events.Publisher
}

// NewManager loads the config at path (empty means search the usual spots)
// and starts watching it for changes.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		for _, loc := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	m := &Manager{
		configPath: path,
		stopCh:     make(chan struct{}),
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	m.config = cfg

	if path != "" {
		if info, err := os.Stat(path); err == nil {
			m.lastMod = info.ModTime()
			m.startWatcher()
		} else {
			log.WithField("path", path).Warn("config file not found, using defaults")
		}
	}
	return m, nil
}

// SetEventPublisher wires the hub used to broadcast config updates.
func (m *Manager) SetEventPublisher(p events.Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return defaultConfig()
	}
	cp := *m.config
	return &cp
}

// Path returns the backing file path, empty when running on defaults.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// UpdateRotation swaps the rotation policy and persists it. Consumers learn
// about it through the rotation topic.
func (m *Manager) UpdateRotation(strategy string, requestCount int) error {
	m.mu.Lock()
	m.config.Rotation.Strategy = strategy
	if requestCount > 0 {
		m.config.Rotation.RequestCount = requestCount
	}
	rotation := m.config.Rotation
	err := m.saveLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.mu.RLock()
	publisher := m.publisher
	m.mu.RUnlock()
	if publisher != nil {
		publisher.Publish(context.Background(), events.TopicRotationChanged, rotation, nil)
	}
	return nil
}

func (m *Manager) saveLocked() error {
	if m.configPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := marshalConfig(m.configPath, m.config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if info, err := os.Stat(m.configPath); err == nil {
		m.lastMod = info.ModTime()
	}
	log.WithField("path", m.configPath).Info("configuration saved")
	return nil
}

// Close stops the watcher.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) reload() {
	m.mu.Lock()
	path := m.configPath
	if path == "" {
		m.mu.Unlock()
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.ModTime().After(m.lastMod) {
		m.mu.Unlock()
		return
	}

	cfg, err := Load(path)
	if err != nil {
		m.mu.Unlock()
		log.WithError(err).WithField("path", path).Warn("config reload failed, keeping previous")
		return
	}
	old := m.config
	m.config = cfg
	m.lastMod = info.ModTime()
	publisher := m.publisher
	m.mu.Unlock()

	log.WithField("path", path).Info("configuration reloaded")
	if old != nil && old.Rotation != cfg.Rotation {
		log.WithFields(log.Fields{
			"old": old.Rotation.Strategy,
			"new": cfg.Rotation.Strategy,
		}).Info("rotation strategy changed")
	}
	if publisher != nil {
		publisher.Publish(context.Background(), events.TopicConfigUpdated, *cfg, nil)
	}
}
