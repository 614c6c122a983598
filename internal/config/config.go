package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"
)

const envPrefix = "EMA_CHAT_"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Unlock    UnlockConfig    `yaml:"unlock"`
	Session   SessionConfig   `yaml:"session"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	URL              string `yaml:"url"`
	Transport        string `yaml:"transport"` // http, websocket
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
}

type AudioConfig struct {
	Backend         string `yaml:"backend"` // miniaudio, portaudio, none
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	BufferFrames    int    `yaml:"buffer_frames"`
	InterClipGapMS  int    `yaml:"inter_clip_gap_ms"`
	MinPayloadChars int    `yaml:"min_payload_chars"`
}

type UnlockConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

type SessionConfig struct {
	PurgeOnTransportError bool `yaml:"purge_on_transport_error"`
}

type TelemetryConfig struct {
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	Traces     bool   `yaml:"traces"`
	TracesFile string `yaml:"traces_file"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:       "http://localhost:5000/chat",
			Transport: "http",
		},
		Audio: AudioConfig{
			Backend:         "miniaudio",
			SampleRate:      44100,
			Channels:        2,
			BufferFrames:    1024,
			InterClipGapMS:  200,
			MinPayloadChars: 100,
		},
		Unlock: UnlockConfig{
			MaxAttempts: 3,
		},
		Telemetry: TelemetryConfig{
			LogLevel:   "info",
			LogFile:    "ema-chat.log",
			TracesFile: "ema-chat-traces.json",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge applies every non-zero field of overrides on top of cfg, typically
// values given on the command line, and validates the result.
func Merge(cfg Config, overrides Config) (Config, error) {
	opt := copier.Option{IgnoreEmpty: true, DeepCopy: true}
	for _, section := range []struct{ to, from any }{
		{&cfg.Server, &overrides.Server},
		{&cfg.Audio, &overrides.Audio},
		{&cfg.Unlock, &overrides.Unlock},
		{&cfg.Session, &overrides.Session},
		{&cfg.Telemetry, &overrides.Telemetry},
	} {
		if err := copier.CopyWithOption(section.to, section.from, opt); err != nil {
			return cfg, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func (c AudioConfig) InterClipGap() time.Duration {
	return time.Duration(c.InterClipGapMS) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.URL, "SERVER_URL")
	overrideString(&cfg.Server.Transport, "SERVER_TRANSPORT")
	overrideInt(&cfg.Server.RequestTimeoutMS, "SERVER_REQUEST_TIMEOUT_MS")
	overrideString(&cfg.Audio.Backend, "AUDIO_BACKEND")
	overrideInt(&cfg.Audio.SampleRate, "AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.BufferFrames, "AUDIO_BUFFER_FRAMES")
	overrideInt(&cfg.Audio.InterClipGapMS, "AUDIO_INTER_CLIP_GAP_MS")
	overrideInt(&cfg.Audio.MinPayloadChars, "AUDIO_MIN_PAYLOAD_CHARS")
	overrideInt(&cfg.Unlock.MaxAttempts, "UNLOCK_MAX_ATTEMPTS")
	overrideBool(&cfg.Session.PurgeOnTransportError, "SESSION_PURGE_ON_TRANSPORT_ERROR")
	overrideString(&cfg.Telemetry.LogLevel, "TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFile, "TELEMETRY_LOG_FILE")
	overrideBool(&cfg.Telemetry.Traces, "TELEMETRY_TRACES")
	overrideString(&cfg.Telemetry.TracesFile, "TELEMETRY_TRACES_FILE")
}

func overrideString(target *string, key string) {
	if value, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, key string) {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, key string) {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Server.URL == "" {
		return errors.New("server.url must not be empty")
	}
	switch cfg.Server.Transport {
	case "http", "websocket":
	default:
		return errors.New("server.transport must be one of http|websocket")
	}
	if cfg.Server.RequestTimeoutMS < 0 {
		return errors.New("server.request_timeout_ms must be >= 0")
	}
	switch cfg.Audio.Backend {
	case "miniaudio", "portaudio", "none":
	default:
		return errors.New("audio.backend must be one of miniaudio|portaudio|none")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if cfg.Audio.BufferFrames <= 0 {
		return errors.New("audio.buffer_frames must be positive")
	}
	if cfg.Audio.InterClipGapMS < 0 {
		return errors.New("audio.inter_clip_gap_ms must be >= 0")
	}
	if cfg.Audio.MinPayloadChars <= 0 {
		return errors.New("audio.min_payload_chars must be positive")
	}
	if cfg.Unlock.MaxAttempts <= 0 {
		return errors.New("unlock.max_attempts must be >= 1")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.Telemetry.Traces && cfg.Telemetry.TracesFile == "" {
		return errors.New("telemetry.traces_file must be set when traces are enabled")
	}
	return nil
}
