package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const EnvPrefix = "YA"

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Call     CallConfig     `mapstructure:"call"`
	WS       WSConfig       `mapstructure:"ws"`
	Storage  StorageConfig  `mapstructure:"storage"`
	RTC      RTCConfig      `mapstructure:"rtc"`
	Shutdown ShutdownConfig `mapstructure:"shutdown"`
}

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CallConfig struct {
	RingTimeout time.Duration `mapstructure:"ring_timeout"`
}

type WSConfig struct {
	SendBuffer     int           `mapstructure:"send_buffer"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RTCConfig struct {
	STUNURLs []string `mapstructure:"stun_urls"`
}

type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers every key so env variables and flags can override
// them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.static_dir", "./static")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("call.ring_timeout", 30*time.Second)
	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.write_wait", 10*time.Second)
	v.SetDefault("ws.pong_wait", 60*time.Second)
	v.SetDefault("ws.max_message_size", 64*1024)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "ya.db")
	v.SetDefault("rtc.stun_urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("shutdown.timeout", 5*time.Second)
}

// Load reads the optional config file, then the environment, on top of the
// defaults.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if c.Call.RingTimeout <= 0 {
		errs = append(errs, errors.New("call.ring_timeout must be positive"))
	}
	if c.WS.SendBuffer <= 0 {
		errs = append(errs, errors.New("ws.send_buffer must be positive"))
	}
	if c.WS.PongWait <= 0 || c.WS.WriteWait <= 0 {
		errs = append(errs, errors.New("ws.pong_wait and ws.write_wait must be positive"))
	}
	if c.WS.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("ws.max_message_size must be positive"))
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be memory or sqlite, got %q", c.Storage.Driver))
	}
	for _, u := range c.RTC.STUNURLs {
		if !strings.HasPrefix(u, "stun:") && !strings.HasPrefix(u, "stuns:") {
			errs = append(errs, fmt.Errorf("rtc.stun_urls: %q is not a stun url", u))
		}
	}
	return errors.Join(errs...)
}

// ICEServers is the browser-side ICE configuration. Only STUN is offered;
// media never goes through this server.
func (c RTCConfig) ICEServers() []webrtc.ICEServer {
	if len(c.STUNURLs) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: append([]string(nil), c.STUNURLs...)}}
}
