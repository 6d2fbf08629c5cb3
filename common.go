package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	configFileName    = ".calsync.toml"
	dbFileName        = ".calsync.db"
	googleAccountName = "google"
)

type YandexConfig struct {
	ServerURL string `toml:"server_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Calendar  string `toml:"calendar"`
}

type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Calendar     string `toml:"calendar"`
}

type SyncConfig struct {
	PastDays       int    `toml:"past_days"`
	FutureDays     int    `toml:"future_days"`
	Schedule       string `toml:"schedule"`
	VerbosityLevel int    `toml:"verbosity_level"`
}

type Config struct {
	Yandex YandexConfig `toml:"yandex"`
	Google GoogleConfig `toml:"google"`
	Sync   SyncConfig   `toml:"sync"`
}

var oauthConfig *oauth2.Config
var configDir string
var verbosityLevel int

func initOAuthConfig(config *Config) {
	oauthConfig = &oauth2.Config{
		ClientID:     config.Google.ClientID,
		ClientSecret: config.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendar.CalendarScope},
	}
}

func readConfig(filename string) (*Config, error) {
	// Try first current dir, then `$HOME/.config/calsync/`
	data, err := os.ReadFile(filename)
	if err != nil {
		data, err = os.ReadFile(os.Getenv("HOME") + "/.config/calsync/" + filename)
		if err != nil {
			return nil, err
		}
		configDir = os.Getenv("HOME") + "/.config/calsync/"
	}

	config, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	verbosityLevel = config.Sync.VerbosityLevel

	return config, nil
}

func parseConfig(data []byte) (*Config, error) {
	// Defaults first; an explicit zero in the file still wins
	config := Config{
		Yandex: YandexConfig{ServerURL: defaultYandexCalDAVURL},
		Google: GoogleConfig{Calendar: "primary"},
		Sync: SyncConfig{
			PastDays:       7,
			FutureDays:     30,
			Schedule:       "*/30 * * * *",
			VerbosityLevel: 1,
		},
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	var missing []string
	if config.Yandex.Username == "" {
		missing = append(missing, "yandex.username")
	}
	if config.Yandex.Password == "" {
		missing = append(missing, "yandex.password")
	}
	if config.Yandex.Calendar == "" {
		missing = append(missing, "yandex.calendar")
	}
	if config.Google.ClientID == "" {
		missing = append(missing, "google.client_id")
	}
	if config.Google.ClientSecret == "" {
		missing = append(missing, "google.client_secret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing config values: %s", strings.Join(missing, ", "))
	}

	if config.Sync.PastDays < 0 || config.Sync.FutureDays < 0 {
		return nil, fmt.Errorf("sync.past_days and sync.future_days must be non-negative")
	}

	return &config, nil
}

func openDB(filename string) (*sql.DB, error) {
	// Try first the same dir, where the config file was found
	db, err := sql.Open("sqlite3", configDir+filename)
	if err != nil {
		// Try the current dir
		db, err = sql.Open("sqlite3", filename)
		if err != nil {
			return nil, err
		}
	}
	return db, nil
}

func getTokenFromWeb(config *oauth2.Config) *oauth2.Token {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		log.Fatalf("Unable to read authorization code: %v", err)
	}

	tok, err := config.Exchange(context.TODO(), authCode)
	if err != nil {
		log.Fatalf("Unable to retrieve token from web: %v", err)
	}
	return tok
}

func saveToken(db *sql.DB, accountName string, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}

	_, err = db.Exec("INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", accountName, tokenJSON)
	return err
}

func getClient(ctx context.Context, config *oauth2.Config, db *sql.DB, accountName string) *http.Client {
	var tokenJSON []byte
	err := db.QueryRow("SELECT token FROM tokens WHERE account_name = ?", accountName).Scan(&tokenJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			fmt.Printf("  ❗️ No token found for account %s. Obtaining a new token.\n", accountName)
			token := getTokenFromWeb(config)
			saveToken(db, accountName, token)
			return config.Client(ctx, token)
		}
		log.Fatalf("Error retrieving token from database: %v", err)
	}

	var token oauth2.Token
	err = json.Unmarshal(tokenJSON, &token)
	if err != nil {
		log.Fatalf("Error unmarshaling token: %v", err)
	}

	tokenSource := config.TokenSource(ctx, &token)
	newToken, err := tokenSource.Token()
	if err != nil {
		if strings.Contains(err.Error(), "Token has been expired or revoked") {
			fmt.Printf("  ❗️ Token expired or revoked for account %s. Obtaining a new token.\n", accountName)
			newToken = getTokenFromWeb(config)
			saveToken(db, accountName, newToken)
			return config.Client(ctx, newToken)
		}
		log.Fatalf("Error retrieving token from token source: %v", err)
	}

	if newToken.AccessToken != token.AccessToken {
		fmt.Printf("Token refreshed for account %s.\n", accountName)
		saveToken(db, accountName, newToken)
	}

	if token.Expiry.Before(time.Now()) {
		fmt.Printf("  ❗️ Token expired for account %s. Refreshing token.\n", accountName)
		newToken, err := config.TokenSource(ctx, &token).Token()
		if err != nil {
			log.Fatalf("Error refreshing token: %v", err)
		}
		saveToken(db, accountName, newToken)
		return config.Client(ctx, newToken)
	}

	return config.Client(ctx, &token)
}

func printVerbosely(verbosity int, format string, a ...interface{}) {
	// Print only if verbosity is higher than verbosityLevel
	// verbosityLevel is set in the config file
	// 0 - no output, other than critical errors
	// 1 - run summary
	// 2 - events being copied
	// 3 - report on out-of-window skips and other details
	if verbosity <= verbosityLevel {
		fmt.Printf(format, a...)
	}
}
