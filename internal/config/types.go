package config

import (
	"time"

	"flockwatch/internal/logging"
)

// Config is the whole process configuration. Files may be YAML or JSON;
// unknown keys are rejected so typos surface at startup instead of silently
// disabling features.
type Config struct {
	Logging logging.Config `json:"logging"`

	Lock      LockConfig      `json:"lock"`
	Storage   StorageConfig   `json:"storage"`
	Registry  RegistryConfig  `json:"registry"`
	Source    SourceConfig    `json:"source"`
	Telegram  TelegramConfig  `json:"telegram,omitempty"`
	Notifier  NotifierConfig  `json:"notifier"`
	Publisher PublisherConfig `json:"publisher,omitempty"`
	Schedules SchedulesConfig `json:"schedules,omitempty"`
}

type LockConfig struct {
	// Addr is the coordination endpoint shared by every process that wants
	// the registry write path.
	Addr string `json:"addr,omitempty"`
	// RetryInterval is a Go duration string (e.g. "30s").
	RetryInterval string `json:"retry_interval,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "file" (default) or "sqlite"
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type RegistryConfig struct {
	Path string `json:"path"`
}

type SourceConfig struct {
	Driver string `json:"driver,omitempty"` // currently "file"
	Path   string `json:"path"`
}

type TelegramConfig struct {
	Token           string `json:"token,omitempty"`
	BroadcastChatID int64  `json:"broadcast_chat_id,omitempty"`
	PollTimeout     string `json:"poll_timeout,omitempty"` // Go duration string
}

type NotifierConfig struct {
	Vocabulary       string `json:"vocabulary"`
	AddedTemplate    string `json:"added_template,omitempty"`
	LostTemplate     string `json:"lost_template,omitempty"`
	SendsPerSec      int    `json:"sends_per_sec,omitempty"`
	MaxSubstitutions int    `json:"max_substitutions,omitempty"`
}

type PublisherConfig struct {
	QueuePath string `json:"queue_path,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
}

// SchedulesConfig holds cron specs for daemon mode; an empty spec disables
// that pass.
type SchedulesConfig struct {
	Timezone string `json:"timezone,omitempty"`
	Track    string `json:"track,omitempty"`
	Notify   string `json:"notify,omitempty"`
	Discover string `json:"discover,omitempty"`
	Publish  string `json:"publish,omitempty"`
}

// LockRetryInterval parses the configured retry interval, falling back to
// the default on empty input.
func (c *Config) LockRetryInterval(def time.Duration) (time.Duration, error) {
	return ParseDuration("lock.retry_interval", c.Lock.RetryInterval, def)
}
