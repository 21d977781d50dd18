package models

import (
	"net/url"
	"time"
)

// Style handed to the haiku engine for every generated image.
const DefaultHaikuStyle = "fusion"

// Thumbnail size sent as the LINE preview image.
const (
	ThumbnailWidth  = 256
	ThumbnailHeight = 256
)

type Config struct {
	CvKey             string         `yaml:"cv_key"`
	CvRegion          string         `yaml:"cv_region"`
	ImageRootURL      string         `yaml:"image_root_url"`
	ProcessingDir     string         `yaml:"processing_dir"`
	LineChannelToken  string         `yaml:"line_channel_token"`
	LineChannelSecret string         `yaml:"line_channel_secret"`
	FriendURL         string         `yaml:"friend_url"`
	Server            ServerConfig   `yaml:"server"`
	Timeouts          TimeoutConfig  `yaml:"timeouts"`
	Kafka             KafkaConfig    `yaml:"kafka"`
	Postgres          PostgresConfig `yaml:"postgres"`
	Retention         RetainConfig   `yaml:"retention"`
	Logger            LogConfig      `yaml:"logger"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	ServeImages bool   `yaml:"serve_images"`
}

// TimeoutConfig holds per-step deadlines in seconds.
type TimeoutConfig struct {
	FetchSeconds int `yaml:"fetch_seconds"`
	HaikuSeconds int `yaml:"haiku_seconds"`
	ReplySeconds int `yaml:"reply_seconds"`
}

type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Raw     TopicConfig `yaml:"raw"`
	Failed  TopicConfig `yaml:"failed"`
	Replies TopicConfig `yaml:"replies"`
}

type TopicConfig struct {
	Topic string `yaml:"topic"`
}

type PostgresConfig struct {
	Driver                string `yaml:"driver"`
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	Database              string `yaml:"database"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	MaxOpenConnection     int    `yaml:"max_open_connection"`
	MaxIdleConnection     int    `yaml:"max_idle_connection"`
	ConnectionMaxLifeTime int    `yaml:"connection_max_life_time"`
}

// RetainConfig controls the sweep of old artifacts; MaxAgeHours 0 disables it.
type RetainConfig struct {
	MaxAgeHours int    `yaml:"max_age_hours"`
	Schedule    string `yaml:"schedule"`
}

type LogConfig struct {
	FilePath     string `yaml:"file_path"`
	Level        int    `yaml:"level"`
	UseLocalTime bool   `yaml:"use_local_time"`
	FileMaxSize  int    `yaml:"file_max_size"`
	FileMaxAge   int    `yaml:"file_max_age"`
}

/*
ApplyDefaults fills optional settings that were left empty in the config file.

Returns: None.
*/
func (c *Config) ApplyDefaults() {
	if c.ProcessingDir == "" {
		c.ProcessingDir = "."
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Timeouts.FetchSeconds <= 0 {
		c.Timeouts.FetchSeconds = 30
	}
	if c.Timeouts.HaikuSeconds <= 0 {
		c.Timeouts.HaikuSeconds = 60
	}
	if c.Timeouts.ReplySeconds <= 0 {
		c.Timeouts.ReplySeconds = 10
	}
	if c.Kafka.Raw.Topic == "" {
		c.Kafka.Raw.Topic = "haikoo.raw"
	}
	if c.Kafka.Failed.Topic == "" {
		c.Kafka.Failed.Topic = "haikoo.failed"
	}
	if c.Kafka.Replies.Topic == "" {
		c.Kafka.Replies.Topic = "haikoo.replies"
	}
	if c.Postgres.Driver == "" {
		c.Postgres.Driver = "pgx"
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = DefaultRetentionSchedule
	}
	if c.Logger.FilePath == "" {
		c.Logger.FilePath = "logs"
	}
	if c.Logger.FileMaxSize == 0 {
		c.Logger.FileMaxSize = 100
	}
	if c.Logger.FileMaxAge == 0 {
		c.Logger.FileMaxAge = 30
	}
}

/*
Validate checks the settings the bot cannot start without.

Returns:
- error: *ConfigError naming the first offending field, or nil.
*/
func (c Config) Validate() error {
	if c.CvKey == "" || c.CvRegion == "" {
		return &ConfigError{Field: "cv_key/cv_region", Reason: "config file must contain 'cv_key' and 'cv_region' settings"}
	}
	if c.LineChannelToken == "" {
		return &ConfigError{Field: "line_channel_token", Reason: "required to construct the LINE client"}
	}
	if _, err := ParseImageRootURL(c.ImageRootURL); err != nil {
		return err
	}
	return nil
}

// ParseImageRootURL parses the public root under which artifacts are served.
func ParseImageRootURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, &ConfigError{Field: "image_root_url", Reason: "must be set"}
	}
	root, err := url.Parse(raw)
	if err != nil {
		return nil, &ConfigError{Field: "image_root_url", Reason: err.Error()}
	}
	if root.Scheme == "" {
		return nil, &ConfigError{Field: "image_root_url", Reason: "must be an absolute URL"}
	}
	return root, nil
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Timeouts.FetchSeconds) * time.Second
}

func (c Config) HaikuTimeout() time.Duration {
	return time.Duration(c.Timeouts.HaikuSeconds) * time.Second
}

func (c Config) ReplyTimeout() time.Duration {
	return time.Duration(c.Timeouts.ReplySeconds) * time.Second
}

// KafkaEnabled reports whether any broker was configured.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// RetentionEnabled reports whether old artifacts should be swept.
func (c Config) RetentionEnabled() bool {
	return c.Retention.MaxAgeHours > 0
}

func (c Config) RetentionMaxAge() time.Duration {
	return time.Duration(c.Retention.MaxAgeHours) * time.Hour
}

// PostgresEnabled reports whether the haiku history database is configured.
func (c Config) PostgresEnabled() bool {
	return c.Postgres.Host != ""
}
