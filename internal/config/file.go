package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"rfid_llrp_go/sdk"
)

// fileConfig is the YAML layout:
//
//	reader:
//	  host: 10.0.0.20
//	  protocol: llrp
//	antennas:
//	  - number: 1
//	    power: 80
type fileConfig struct {
	Reader struct {
		Host             string `yaml:"host"`
		Port             int    `yaml:"port"`
		Protocol         string `yaml:"protocol"`
		ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	} `yaml:"reader"`
	Antennas []struct {
		Number int  `yaml:"number"`
		Power  *int `yaml:"power"`
	} `yaml:"antennas"`
	RetryDelayMS    int    `yaml:"retry_delay_ms"`
	MaxRetryDelayMS int    `yaml:"max_retry_delay_ms"`
	HTTPAddr        string `yaml:"http_addr"`
	LogLevel        string `yaml:"log_level"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fc, errors.Wrap(err, "open config file")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fileConfig{}, errors.Wrapf(ErrInvalid, "decode %s: %v", path, err)
	}
	for _, a := range fc.Antennas {
		if a.Number < 1 {
			return fileConfig{}, errors.Wrapf(ErrInvalid, "%s: antenna number %d", path, a.Number)
		}
	}
	return fc, nil
}

func (fc fileConfig) antennas() []sdk.AntennaConfig {
	out := make([]sdk.AntennaConfig, 0, len(fc.Antennas))
	for _, a := range fc.Antennas {
		power := 100
		if a.Power != nil {
			power = *a.Power
		}
		out = append(out, sdk.AntennaConfig{Number: a.Number, PowerPercent: power})
	}
	return out
}
