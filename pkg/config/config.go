package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/identity/config"
	ConfigFileName    = "identity.yml"
)

// Lock backends
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// MinSaltLength mirrors slosilo.MinSaltLength
const MinSaltLength = 16

// IdentityConfig holds the tunable settings of the provisioning service
type IdentityConfig struct {
	// ApplicationName prefixes every permittable path
	ApplicationName string `yaml:"application_name" json:"application_name"`

	PasswordExpiresInDays                     int `yaml:"password_expires_in_days" json:"password_expires_in_days"`
	TimeToChangePasswordAfterExpirationInDays int `yaml:"time_to_change_password_after_expiration_in_days" json:"time_to_change_password_after_expiration_in_days"`

	// SaltLength is the number of random bytes in a tenant's fixed salt
	SaltLength int `yaml:"salt_length" json:"salt_length"`

	// LockBackend selects the tenant lock: "local" or "redis"
	LockBackend     string `yaml:"lock_backend" json:"lock_backend"`
	LockNonBlocking bool   `yaml:"lock_non_blocking" json:"lock_non_blocking"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds" json:"lock_ttl_seconds"`
	RedisURL        string `yaml:"redis_url" json:"redis_url"`

	// KeyCacheSize bounds the decrypted signing key cache
	KeyCacheSize int `yaml:"key_cache_size" json:"key_cache_size"`

	// sources tracks where each value came from
	sources map[string]string

	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *IdentityConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *IdentityConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *IdentityConfig {
	return &IdentityConfig{
		ApplicationName:       "identity-v1",
		PasswordExpiresInDays: 93,
		TimeToChangePasswordAfterExpirationInDays: 4,
		SaltLength:      32,
		LockBackend:     LockBackendLocal,
		LockNonBlocking: false,
		LockTTLSeconds:  60,
		KeyCacheSize:    128,
		sources:         make(map[string]string),
	}
}

// FilePath returns the config file location, honouring IDENTITY_CONFIG_PATH
func FilePath() string {
	configPath := os.Getenv("IDENTITY_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return filepath.Join(configPath, ConfigFileName)
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*IdentityConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	config.configFilePath = FilePath()

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig IdentityConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"application_name", "password_expires_in_days",
		"time_to_change_password_after_expiration_in_days", "salt_length",
		"lock_backend", "lock_non_blocking", "lock_ttl_seconds", "redis_url",
		"key_cache_size",
	}
}

func (c *IdentityConfig) applyFileConfig(file *IdentityConfig) {
	if file.ApplicationName != "" {
		c.ApplicationName = file.ApplicationName
		c.sources["application_name"] = "file"
	}
	if file.PasswordExpiresInDays != 0 {
		c.PasswordExpiresInDays = file.PasswordExpiresInDays
		c.sources["password_expires_in_days"] = "file"
	}
	if file.TimeToChangePasswordAfterExpirationInDays != 0 {
		c.TimeToChangePasswordAfterExpirationInDays = file.TimeToChangePasswordAfterExpirationInDays
		c.sources["time_to_change_password_after_expiration_in_days"] = "file"
	}
	if file.SaltLength != 0 {
		c.SaltLength = file.SaltLength
		c.sources["salt_length"] = "file"
	}
	if file.LockBackend != "" {
		c.LockBackend = file.LockBackend
		c.sources["lock_backend"] = "file"
	}
	if file.LockNonBlocking {
		c.LockNonBlocking = true
		c.sources["lock_non_blocking"] = "file"
	}
	if file.LockTTLSeconds != 0 {
		c.LockTTLSeconds = file.LockTTLSeconds
		c.sources["lock_ttl_seconds"] = "file"
	}
	if file.RedisURL != "" {
		c.RedisURL = file.RedisURL
		c.sources["redis_url"] = "file"
	}
	if file.KeyCacheSize != 0 {
		c.KeyCacheSize = file.KeyCacheSize
		c.sources["key_cache_size"] = "file"
	}
}

func (c *IdentityConfig) applyEnvConfig() error {
	if val := os.Getenv("IDENTITY_APPLICATION_NAME"); val != "" {
		c.ApplicationName = val
		c.sources["application_name"] = "environment"
	}
	if val := os.Getenv("IDENTITY_LOCK_BACKEND"); val != "" {
		c.LockBackend = strings.ToLower(strings.TrimSpace(val))
		c.sources["lock_backend"] = "environment"
	}
	if val := os.Getenv("IDENTITY_LOCK_NON_BLOCKING"); val != "" {
		c.LockNonBlocking = val == "true" || val == "1"
		c.sources["lock_non_blocking"] = "environment"
	}
	if val := os.Getenv("IDENTITY_REDIS_URL"); val != "" {
		c.RedisURL = val
		c.sources["redis_url"] = "environment"
	}

	ints := []struct {
		env, name string
		dst       *int
	}{
		{"IDENTITY_PASSWORD_EXPIRES_IN_DAYS", "password_expires_in_days", &c.PasswordExpiresInDays},
		{"IDENTITY_TIME_TO_CHANGE_PASSWORD_AFTER_EXPIRATION_IN_DAYS", "time_to_change_password_after_expiration_in_days", &c.TimeToChangePasswordAfterExpirationInDays},
		{"IDENTITY_SALT_LENGTH", "salt_length", &c.SaltLength},
		{"IDENTITY_LOCK_TTL_SECONDS", "lock_ttl_seconds", &c.LockTTLSeconds},
		{"IDENTITY_KEY_CACHE_SIZE", "key_cache_size", &c.KeyCacheSize},
	}
	for _, attr := range ints {
		val := os.Getenv(attr.env)
		if val == "" {
			continue
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", attr.env, val, err)
		}
		*attr.dst = i
		c.sources[attr.name] = "environment"
	}
	return nil
}

// ConfigFilePath returns the path to the config file
func (c *IdentityConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *IdentityConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// LockTTL returns the redis lock TTL as a duration
func (c *IdentityConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Validate validates the configuration
func (c *IdentityConfig) Validate() error {
	if c.ApplicationName == "" {
		return fmt.Errorf("application_name must not be empty")
	}
	if c.PasswordExpiresInDays <= 0 {
		return fmt.Errorf("password_expires_in_days must be positive: %d", c.PasswordExpiresInDays)
	}
	if c.TimeToChangePasswordAfterExpirationInDays <= 0 {
		return fmt.Errorf("time_to_change_password_after_expiration_in_days must be positive: %d", c.TimeToChangePasswordAfterExpirationInDays)
	}
	if c.SaltLength < MinSaltLength {
		return fmt.Errorf("salt_length must be at least %d: %d", MinSaltLength, c.SaltLength)
	}
	if c.LockTTLSeconds <= 0 {
		return fmt.Errorf("lock_ttl_seconds must be positive: %d", c.LockTTLSeconds)
	}
	if c.KeyCacheSize <= 0 {
		return fmt.Errorf("key_cache_size must be positive: %d", c.KeyCacheSize)
	}

	switch c.LockBackend {
	case LockBackendLocal:
	case LockBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required when lock_backend is %q", LockBackendRedis)
		}
	default:
		return fmt.Errorf("invalid lock_backend: %s", c.LockBackend)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *IdentityConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "application_name", Value: c.ApplicationName, Source: c.Source("application_name")},
		{Name: "password_expires_in_days", Value: strconv.Itoa(c.PasswordExpiresInDays), Source: c.Source("password_expires_in_days")},
		{Name: "time_to_change_password_after_expiration_in_days", Value: strconv.Itoa(c.TimeToChangePasswordAfterExpirationInDays), Source: c.Source("time_to_change_password_after_expiration_in_days")},
		{Name: "salt_length", Value: strconv.Itoa(c.SaltLength), Source: c.Source("salt_length")},
		{Name: "lock_backend", Value: c.LockBackend, Source: c.Source("lock_backend")},
		{Name: "lock_non_blocking", Value: strconv.FormatBool(c.LockNonBlocking), Source: c.Source("lock_non_blocking")},
		{Name: "lock_ttl_seconds", Value: strconv.Itoa(c.LockTTLSeconds), Source: c.Source("lock_ttl_seconds")},
		{Name: "redis_url", Value: redact(c.RedisURL), Source: c.Source("redis_url")},
		{Name: "key_cache_size", Value: strconv.Itoa(c.KeyCacheSize), Source: c.Source("key_cache_size")},
	}
}

// FormatText returns a text representation of the configuration
func (c *IdentityConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-50s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-50s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-50s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *IdentityConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// redact hides the password of a connection URL
func redact(url string) string {
	scheme := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if scheme < 0 || at < scheme {
		return url
	}
	userinfo := url[scheme+3 : at]
	if i := strings.Index(userinfo, ":"); i >= 0 {
		return url[:scheme+3] + userinfo[:i] + ":xxxxx" + url[at:]
	}
	return url
}

// Watch reloads the global configuration whenever the config file is written
// or replaced, and passes each successfully loaded config to onChange. It
// blocks until ctx is done. The containing directory must exist.
func Watch(ctx context.Context, logger logrus.FieldLogger, onChange func(*IdentityConfig)) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	path := FilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so that atomic replaces are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			if err := Reload(); err != nil {
				logger.WithError(err).WithField("path", path).Warn("Keeping previous configuration")
				continue
			}
			cfg := Get()
			logger.WithField("path", path).Info("Configuration reloaded")
			if onChange != nil {
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Config watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
