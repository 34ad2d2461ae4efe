// Command llrp-reader keeps one RFID reader inventorying and serves its
// status, control and live reads over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/config"
	"rfid_llrp_go/internal/factory"
	"rfid_llrp_go/internal/httpapi"
	"rfid_llrp_go/internal/manager"
	"rfid_llrp_go/sdk"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	envFile := os.Getenv("LLRP_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		log.WithFields(log.Fields{"Method": "main", "Error": err.Error()}).Warn("env file not loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithFields(log.Fields{"Method": "main", "Action": "config"}).Fatal(err.Error())
	}
	if err := config.ConfigureLogging(cfg.LogLevel); err != nil {
		log.WithFields(log.Fields{"Method": "main", "Action": "config"}).Fatal(err.Error())
	}

	reader, err := factory.New(cfg.ReaderConfig())
	if err != nil {
		log.WithFields(log.Fields{"Method": "main", "Action": "factory"}).Fatal(err.Error())
	}
	reader.AddHandler(sdk.HandlerFunc(func(ev sdk.ReadEvent) error {
		log.WithFields(log.Fields{
			"EPC":     ev.Tag.EPC,
			"Antenna": ev.Tag.Antenna,
		}).Debug("tag read")
		return nil
	}))

	feed := httpapi.NewFeed()
	reader.AddHandler(feed)
	mgr := manager.New(reader,
		manager.WithRetry(cfg.RetryDelay, cfg.MaxRetryDelay),
		manager.WithNotifier(feed.Notify),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"Method":   "main",
		"Action":   "Start",
		"Reader":   reader.Endpoint().String(),
		"Protocol": cfg.Protocol,
		"Antennas": len(cfg.Antennas),
	}).Info("starting reader service")
	if err := mgr.Start(ctx); err != nil {
		log.WithFields(log.Fields{"Method": "main", "Action": "Start"}).Fatal(err.Error())
	}

	if cfg.HTTPAddr != "" {
		srv := httpapi.New(cfg.HTTPAddr, mgr, feed)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.WithFields(log.Fields{"Method": "main", "Action": "http", "Error": err.Error()}).Error("http server stopped")
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.WithField("Method", "main").Info("shutting down")
	mgr.Stop()
	log.WithField("Method", "main").Info(mgr.StatusText())
}
