// Command llrp-sim runs a bench LLRP reader that accepts one client at a
// time, answers every control message and reports a fixed tag population
// while its ROSpec is started.
package main

import (
	"encoding/hex"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/simulator"
)

func main() {
	addr := flag.String("addr", ":5084", "listen address")
	interval := flag.Duration("interval", 500*time.Millisecond, "report interval while running")
	antenna := flag.Uint("antenna", 1, "antenna id put in reports")
	epcList := flag.String("epcs", "E2801160600002084BB2A54C,300833B2DDD9014000000001", "comma separated EPCs in hex")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	var epcs [][]byte
	for _, raw := range strings.Split(*epcList, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		epc, err := hex.DecodeString(raw)
		if err != nil {
			log.WithFields(log.Fields{"Method": "main", "EPC": raw}).Fatal("EPC is not hex")
		}
		epcs = append(epcs, epc)
	}

	sim, err := simulator.Listen(*addr, simulator.WithAutoReport(*interval, uint16(*antenna), epcs...))
	if err != nil {
		log.WithField("Method", "main").Fatal(err.Error())
	}
	log.WithFields(log.Fields{
		"Method": "main",
		"Addr":   *addr,
		"Tags":   len(epcs),
	}).Info("simulated reader listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	_ = sim.Close()
	log.WithFields(log.Fields{
		"Method":   "main",
		"Sessions": sim.Accepted(),
		"Requests": len(sim.Requests()),
	}).Info("simulated reader stopped")
}
