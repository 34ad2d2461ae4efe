package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/config"
	"rfid_llrp_go/internal/factory"
	"rfid_llrp_go/internal/tui"
)

func main() {
	envFile := os.Getenv("LLRP_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "env load warning: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// the alt screen owns the terminal; logs go to a file when requested
	log.SetOutput(io.Discard)
	if path := os.Getenv("LLRP_TUI_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
		_ = config.ConfigureLogging(cfg.LogLevel)
	}

	reader, err := factory.New(cfg.ReaderConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := tui.Run(reader); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
