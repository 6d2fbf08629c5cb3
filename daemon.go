package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
)

// runDaemon repeats the sync on the configured cron schedule until the
// process receives SIGINT or SIGTERM. A failed run is logged and the daemon
// waits for the next tick; there is no retry in between.
func runDaemon() {
	config, err := readConfig(configFileName)
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	initOAuthConfig(config)

	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()
	if err := dbInit(db); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	ctx := context.Background()

	doSync := func() {
		report, err := runSync(ctx, config, db, false)
		if err != nil {
			log.Printf("❌ Sync failed: %v", err)
			return
		}
		printReport(report, false)
	}

	c := cron.New()
	if _, err := c.AddFunc(config.Sync.Schedule, doSync); err != nil {
		log.Fatalf("Invalid sync.schedule %q: %v", config.Sync.Schedule, err)
	}

	printVerbosely(1, "⏰ Running sync on schedule %q, press Ctrl+C to stop\n", config.Sync.Schedule)

	// One run right away so the daemon is useful before the first tick
	doSync()
	c.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	printVerbosely(1, "👋 Stopping, waiting for a running sync to finish...\n")
	<-c.Stop().Done()
}
