package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rocketscienceinc/tictactoe-bot/internal/repository"
)

const (
	BotModeWebhook   = "webhook"
	BotModeWebsocket = "websocket"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	ErrUnknownBotMode  = errors.New("unknown bot mode")
	ErrUnknownBackend  = errors.New("unknown session backend")
	ErrWebhookURL      = errors.New("webhook mode needs webhook.url and chat-api.base-url")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

type Config struct {
	LogLevel    string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	BotMode     string   `yaml:"bot-mode" env:"BOT_MODE" env-default:"websocket"`
	HTTPPort    string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort  string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Language    string   `yaml:"language" env:"BOT_LANGUAGE" env-default:"en"`
	MessagesDir string   `yaml:"messages-dir" env:"MESSAGES_DIR"`
	Webhook     Webhook  `yaml:"webhook"`
	ChatAPI     ChatAPI  `yaml:"chat-api"`
	Sessions    Sessions `yaml:"sessions"`
	Redis       Redis    `yaml:"redis"`
}

type Webhook struct {
	URL  string `yaml:"url" env:"WEBHOOK_URL"`
	Path string `yaml:"path" env:"WEBHOOK_PATH" env-default:"/webhook"`
}

type ChatAPI struct {
	BaseURL string        `yaml:"base-url" env:"CHAT_API_URL"`
	Token   string        `yaml:"token" env:"CHAT_API_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"CHAT_API_TIMEOUT" env-default:"10s"`
	Retries int           `yaml:"retries" env:"CHAT_API_RETRIES" env-default:"3"`
}

type Sessions struct {
	Backend     string        `yaml:"backend" env:"SESSION_BACKEND" env-default:"memory"`
	TTL         time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
	FinishedTTL time.Duration `yaml:"finished-ttl" env:"SESSION_FINISHED_TTL" env-default:"1h"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Load reads the config file at path, falling back to the environment alone
// when the file does not exist. Environment variables override the file.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, statErr := os.Stat(path)
	switch {
	case path != "" && statErr == nil:
		if err := cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case path == "" || errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to load config file: %w", statErr)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) Validate() error {
	switch that.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, that.LogLevel)
	}

	switch that.BotMode {
	case BotModeWebsocket:
	case BotModeWebhook:
		if that.Webhook.URL == "" || that.ChatAPI.BaseURL == "" {
			return ErrWebhookURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBotMode, that.BotMode)
	}

	switch that.Sessions.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, that.Sessions.Backend)
	}

	return nil
}

// WebhookURL is the address registered with the chat API.
func (that *Config) WebhookURL() string {
	return strings.TrimRight(that.Webhook.URL, "/") + that.Webhook.Path
}

func (that *Sessions) Expiry() repository.Expiry {
	return repository.Expiry{TTL: that.TTL, FinishedTTL: that.FinishedTTL}
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}
