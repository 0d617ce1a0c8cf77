// Package config assembles the runtime's configuration from a plain,
// JSON-serializable struct tree, loadable from a file (JSON or YAML) and
// overridable from the environment — the same ambient pattern as the
// teacher's own internal/config package (no viper, no struct-tag
// validation library: constructors and LoadFromEnv do their own parsing,
// matching the teacher's manual strconv-based env overrides).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RouterConfig controls the inbound queue, worker pool, and message
// timeout.
type RouterConfig struct {
	InboundQueueSize int           `json:"inbound_queue_size"`
	WorkerThreadCount int          `json:"worker_thread_count"`
	MessageTimeoutMS int           `json:"message_timeout_ms"`
	ShutdownDeadline time.Duration `json:"shutdown_deadline"`
}

// ConversationConfig controls conversation expiry and participant caps.
type ConversationConfig struct {
	ConversationTimeoutMS     int `json:"conversation_timeout_ms"`
	MaxConversationParticipants int `json:"max_conversation_participants"`
}

// RetryConfig controls the failure handler's retry/backoff policy.
type RetryConfig struct {
	MaxRetries         int     `json:"max_retries"`
	RetryBackoffMS     int     `json:"retry_backoff_ms"`
	RetryBackoffFactor float64 `json:"retry_backoff_factor"`
	MaxBackoffMS       int     `json:"max_backoff_ms"`
}

// ResourceConfig controls the memory/fuel caps and security profile.
type ResourceConfig struct {
	AgentMemoryCapMB uint64 `json:"agent_memory_cap_mb"`
	TotalMemoryCapMB uint64 `json:"total_memory_cap_mb"`
	MaxCPUFuel       uint64 `json:"max_cpu_fuel"`
	SecurityProfile  string `json:"security_profile"` // "strict" or "relaxed"
}

// ObservabilityConfig mirrors the teacher's own field set for logging,
// metrics, and tracing switches.
type ObservabilityConfig struct {
	EnableMetrics     bool    `json:"enable_metrics"`
	EnablePersistence bool    `json:"enable_persistence"`
	TraceSamplingRatio float64 `json:"trace_sampling_ratio"`
	LogLevel          string  `json:"log_level"`
}

// PersistConfig controls the embedded store.
type PersistConfig struct {
	Path string `json:"path"`
}

// Config is the full runtime configuration.
type Config struct {
	Router        RouterConfig        `json:"router"`
	Conversation  ConversationConfig  `json:"conversation"`
	Retry         RetryConfig         `json:"retry"`
	Resources     ResourceConfig      `json:"resources"`
	Observability ObservabilityConfig `json:"observability"`
	Persist       PersistConfig       `json:"persist"`
}

// DevelopmentConfig returns a verbose preset with small queues, suited to
// local iteration.
func DevelopmentConfig() Config {
	return Config{
		Router: RouterConfig{
			InboundQueueSize:  256,
			WorkerThreadCount: 4,
			MessageTimeoutMS:  5_000,
			ShutdownDeadline:  5 * time.Second,
		},
		Conversation: ConversationConfig{
			ConversationTimeoutMS:       300_000,
			MaxConversationParticipants: 32,
		},
		Retry: RetryConfig{
			MaxRetries:         3,
			RetryBackoffMS:     50,
			RetryBackoffFactor: 2,
			MaxBackoffMS:       2_000,
		},
		Resources: ResourceConfig{
			AgentMemoryCapMB: 64,
			TotalMemoryCapMB: 1_024,
			MaxCPUFuel:       100_000_000,
			SecurityProfile:  "relaxed",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:      true,
			EnablePersistence:  true,
			TraceSamplingRatio: 1.0,
			LogLevel:           "debug",
		},
		Persist: PersistConfig{Path: "./caxton-dev.db"},
	}
}

// TestingConfig returns a preset with small queues and deterministic
// timing, suited to automated tests.
func TestingConfig() Config {
	c := DevelopmentConfig()
	c.Router.InboundQueueSize = 16
	c.Router.WorkerThreadCount = 2
	c.Router.MessageTimeoutMS = 1_000
	c.Router.ShutdownDeadline = time.Second
	c.Conversation.ConversationTimeoutMS = 1_000
	c.Retry.RetryBackoffMS = 1
	c.Retry.MaxBackoffMS = 10
	c.Observability.LogLevel = "warn"
	c.Persist.Path = ":memory:"
	return c
}

// ProductionConfig returns a preset with large queues and low trace
// sampling, suited to production deployment.
func ProductionConfig() Config {
	return Config{
		Router: RouterConfig{
			InboundQueueSize:  65_536,
			WorkerThreadCount: 64,
			MessageTimeoutMS:  30_000,
			ShutdownDeadline:  30 * time.Second,
		},
		Conversation: ConversationConfig{
			ConversationTimeoutMS:       1_800_000,
			MaxConversationParticipants: 256,
		},
		Retry: RetryConfig{
			MaxRetries:         5,
			RetryBackoffMS:     100,
			RetryBackoffFactor: 2,
			MaxBackoffMS:       30_000,
		},
		Resources: ResourceConfig{
			AgentMemoryCapMB: 256,
			TotalMemoryCapMB: 16_384,
			MaxCPUFuel:       1_000_000_000,
			SecurityProfile:  "strict",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:      true,
			EnablePersistence:  true,
			TraceSamplingRatio: 0.01,
			LogLevel:           "info",
		},
		Persist: PersistConfig{Path: "/var/lib/caxton/registry.db"},
	}
}

// LoadFromFile reads a JSON or YAML configuration file (by extension)
// over a DevelopmentConfig base, overriding only the fields present in
// the file.
func LoadFromFile(path string) (Config, error) {
	cfg := DevelopmentConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse yaml %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse json %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment-variable overrides onto cfg, matching
// the teacher's own manual-parsing convention (no struct-tag reflection).
func LoadFromEnv(cfg Config) Config {
	if v := os.Getenv("CAXTON_INBOUND_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.InboundQueueSize = n
		}
	}
	if v := os.Getenv("CAXTON_WORKER_THREAD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.WorkerThreadCount = n
		}
	}
	if v := os.Getenv("CAXTON_MESSAGE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.MessageTimeoutMS = n
		}
	}
	if v := os.Getenv("CAXTON_CONVERSATION_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Conversation.ConversationTimeoutMS = n
		}
	}
	if v := os.Getenv("CAXTON_MAX_CONVERSATION_PARTICIPANTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Conversation.MaxConversationParticipants = n
		}
	}
	if v := os.Getenv("CAXTON_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("CAXTON_RETRY_BACKOFF_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.RetryBackoffMS = n
		}
	}
	if v := os.Getenv("CAXTON_RETRY_BACKOFF_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retry.RetryBackoffFactor = f
		}
	}
	if v := os.Getenv("CAXTON_AGENT_MEMORY_CAP_MB"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Resources.AgentMemoryCapMB = n
		}
	}
	if v := os.Getenv("CAXTON_TOTAL_MEMORY_CAP_MB"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Resources.TotalMemoryCapMB = n
		}
	}
	if v := os.Getenv("CAXTON_MAX_CPU_FUEL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Resources.MaxCPUFuel = n
		}
	}
	if v := os.Getenv("CAXTON_SECURITY_PROFILE"); v != "" {
		cfg.Resources.SecurityProfile = v
	}
	if v := os.Getenv("CAXTON_ENABLE_METRICS"); v != "" {
		if b, err := parseBool(v); err == nil {
			cfg.Observability.EnableMetrics = b
		}
	}
	if v := os.Getenv("CAXTON_ENABLE_PERSISTENCE"); v != "" {
		if b, err := parseBool(v); err == nil {
			cfg.Observability.EnablePersistence = b
		}
	}
	if v := os.Getenv("CAXTON_TRACE_SAMPLING_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Observability.TraceSamplingRatio = f
		}
	}
	if v := os.Getenv("CAXTON_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("CAXTON_PERSIST_PATH"); v != "" {
		cfg.Persist.Path = v
	}
	return cfg
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("config: invalid bool value %q", s)
	}
}
