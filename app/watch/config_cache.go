package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive source name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		sourceName := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", sourceName, "enabled", config.Settings.Enabled, "check_interval", config.Settings.CheckInterval)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Set source name from parameter
	sourceConfig.Name = sourceName
	if sourceConfig.Output.SourceTag == "" {
		sourceConfig.Output.SourceTag = sourceName
	}

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	// Store in cache
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sourceConfig.Kind == "" {
		sourceConfig.Kind = KindListing
	}
	if sourceConfig.Settings.CheckInterval == 0 {
		sourceConfig.Settings.CheckInterval = 86400
	}
	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 15
	}
	if sourceConfig.Settings.DetailTimeout == 0 {
		sourceConfig.Settings.DetailTimeout = 20
	}
	if sourceConfig.Settings.MinTextLength == 0 {
		sourceConfig.Settings.MinTextLength = 50
	}
	if sourceConfig.Settings.FeedItems == 0 {
		sourceConfig.Settings.FeedItems = 50
	}
	if len(sourceConfig.Settings.Selectors) == 0 {
		sourceConfig.Settings.Selectors = DefaultSelectors()
	}
	if sourceConfig.Limits.MaxAttempts == 0 {
		sourceConfig.Limits.MaxAttempts = 3
	}
	if sourceConfig.Limits.RetryDelayMs == 0 {
		sourceConfig.Limits.RetryDelayMs = 1000
	}
	if sourceConfig.Limits.StandardDelayMs == 0 {
		sourceConfig.Limits.StandardDelayMs = 500
	}
	if sourceConfig.Limits.DetailDelayMs == 0 {
		sourceConfig.Limits.DetailDelayMs = 2000
	}
	if sourceConfig.Limits.DetailPattern == "" {
		sourceConfig.Limits.DetailPattern = "/node/"
	}
	if sourceConfig.Limits.BatchSize == 0 {
		sourceConfig.Limits.BatchSize = 10
	}
	if sourceConfig.Limits.BatchPauseMs == 0 {
		sourceConfig.Limits.BatchPauseMs = 5000
	}
	if sourceConfig.Output.Master == "" {
		sourceConfig.Output.Master = "master.csv"
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	requiredFields := map[string]string{
		"source name": sourceConfig.Name,
		"source URL":  sourceConfig.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if sourceConfig.Kind != KindListing && sourceConfig.Kind != KindFeed {
		return fmt.Errorf("invalid source kind: %s", sourceConfig.Kind)
	}

	nonNegativeFields := map[string]int{
		"check interval":  sourceConfig.Settings.CheckInterval,
		"timeout":         sourceConfig.Settings.Timeout,
		"detail timeout":  sourceConfig.Settings.DetailTimeout,
		"min text length": sourceConfig.Settings.MinTextLength,
		"feed items":      sourceConfig.Settings.FeedItems,
		"max attempts":    sourceConfig.Limits.MaxAttempts,
		"retry delay":     sourceConfig.Limits.RetryDelayMs,
		"standard delay":  sourceConfig.Limits.StandardDelayMs,
		"detail delay":    sourceConfig.Limits.DetailDelayMs,
		"batch size":      sourceConfig.Limits.BatchSize,
		"batch pause":     sourceConfig.Limits.BatchPauseMs,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	// Invalid selectors would panic inside goquery during a run
	for i, selector := range sourceConfig.Settings.Selectors {
		if _, err := cascadia.Compile(selector); err != nil {
			return fmt.Errorf("invalid selector at index %d: %w", i, err)
		}
	}

	validFields := map[string]bool{
		"name":        true,
		"description": true,
		"url":         true,
	}

	for i, filter := range sourceConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}
