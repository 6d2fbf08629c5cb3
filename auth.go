package main

import (
	"log"
)

// authorizeGoogle runs the interactive OAuth flow and stores the resulting
// token in the local database, so sync runs can work unattended afterwards.
func authorizeGoogle() {
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

	token := getTokenFromWeb(oauthConfig)
	if err := saveToken(db, googleAccountName, token); err != nil {
		log.Fatalf("Error saving token: %v", err)
	}

	printVerbosely(0, "✅ Google token saved for account %s\n", googleAccountName)
}
