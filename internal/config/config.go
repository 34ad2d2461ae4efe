// Package config loads the reader service settings from the environment,
// optionally seeded by a YAML file and a dotenv file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/sdk"
)

type Config struct {
	ReaderHost     string
	ReaderPort     int
	Protocol       string
	Antennas       []sdk.AntennaConfig
	ConnectTimeout time.Duration
	RetryDelay     time.Duration
	MaxRetryDelay  time.Duration
	HTTPAddr       string
	HTTPEnabled    bool
	LogLevel       string
}

// ErrInvalid marks every configuration problem returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Load reads LLRP_* variables. When LLRP_CONFIG_FILE names a YAML file its
// values become the defaults and the environment overrides them.
func Load() (Config, error) {
	file, err := loadFile(os.Getenv("LLRP_CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ReaderHost:     envOr("LLRP_READER_HOST", file.Reader.Host),
		ReaderPort:     envInt("LLRP_READER_PORT", file.Reader.Port),
		Protocol:       strings.ToLower(envOr("LLRP_READER_PROTOCOL", orDefault(file.Reader.Protocol, sdk.ProtocolLLRP))),
		ConnectTimeout: envDurationMS("LLRP_CONNECT_TIMEOUT_MS", orDefaultInt(file.Reader.ConnectTimeoutMS, 2000)),
		RetryDelay:     envDurationMS("LLRP_RETRY_DELAY_MS", orDefaultInt(file.RetryDelayMS, 2000)),
		MaxRetryDelay:  envDurationMS("LLRP_MAX_RETRY_DELAY_MS", orDefaultInt(file.MaxRetryDelayMS, 30_000)),
		HTTPAddr:       envOr("LLRP_HTTP_ADDR", orDefault(file.HTTPAddr, ":8099")),
		HTTPEnabled:    envBool("LLRP_HTTP_ENABLED", true),
		LogLevel:       strings.ToLower(envOr("LLRP_LOG_LEVEL", orDefault(file.LogLevel, "info"))),
	}
	if !cfg.HTTPEnabled {
		cfg.HTTPAddr = ""
	}

	if raw := strings.TrimSpace(os.Getenv("LLRP_ANTENNAS")); raw != "" {
		cfg.Antennas, err = ParseAntennas(raw)
		if err != nil {
			return Config{}, err
		}
	} else {
		cfg.Antennas = file.antennas()
	}

	if cfg.ReaderHost == "" {
		return Config{}, errors.Wrap(ErrInvalid, "LLRP_READER_HOST is required")
	}
	switch cfg.Protocol {
	case sdk.ProtocolLLRP, sdk.ProtocolBRI:
	default:
		return Config{}, errors.Wrapf(ErrInvalid, "LLRP_READER_PROTOCOL %q", cfg.Protocol)
	}
	if cfg.ReaderPort < 0 || cfg.ReaderPort > 65535 {
		return Config{}, errors.Wrapf(ErrInvalid, "LLRP_READER_PORT %d", cfg.ReaderPort)
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, errors.Wrapf(ErrInvalid, "LLRP_LOG_LEVEL %q", cfg.LogLevel)
	}
	if cfg.ConnectTimeout < 100*time.Millisecond {
		cfg.ConnectTimeout = sdk.DefaultConnectTimeout
	}
	if cfg.RetryDelay < 100*time.Millisecond {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = cfg.RetryDelay
	}

	return cfg, nil
}

// ReaderConfig is the part of cfg the reader backends consume.
func (cfg Config) ReaderConfig() sdk.ReaderConfig {
	return sdk.ReaderConfig{
		Endpoint:       sdk.Endpoint{Host: cfg.ReaderHost, Port: cfg.ReaderPort},
		Protocol:       cfg.Protocol,
		Antennas:       append([]sdk.AntennaConfig(nil), cfg.Antennas...),
		ConnectTimeout: cfg.ConnectTimeout,
	}
}

// ParseAntennas reads an ordered "number:power" list such as "1:80,2:50".
// A bare number means full power.
func ParseAntennas(raw string) ([]sdk.AntennaConfig, error) {
	var out []sdk.AntennaConfig
	seen := make(map[int]bool)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		numRaw, powRaw, hasPower := strings.Cut(item, ":")
		num, err := strconv.Atoi(strings.TrimSpace(numRaw))
		if err != nil || num < 1 {
			return nil, errors.Wrapf(ErrInvalid, "antenna %q: bad number", item)
		}
		power := 100
		if hasPower {
			power, err = strconv.Atoi(strings.TrimSpace(powRaw))
			if err != nil || power < 0 {
				return nil, errors.Wrapf(ErrInvalid, "antenna %q: bad power", item)
			}
		}
		if seen[num] {
			return nil, errors.Wrapf(ErrInvalid, "antenna %d listed twice", num)
		}
		seen[num] = true
		out = append(out, sdk.AntennaConfig{Number: num, PowerPercent: power})
	}
	return out, nil
}

// ConfigureLogging applies the level and the plain text format used by the
// services.
func ConfigureLogging(level string) error {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return errors.Wrapf(ErrInvalid, "log level %q", level)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	log.SetLevel(lvl)
	return nil
}

func envOr(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDurationMS(key string, fallbackMS int) time.Duration {
	return time.Duration(envInt(key, fallbackMS)) * time.Millisecond
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
