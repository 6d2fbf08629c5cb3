package main

import "database/sql"

// dbInit brings the token database up to the current schema version.
func dbInit(db *sql.DB) error {
	var dbVersion int
	err := db.QueryRow("SELECT version FROM db_version WHERE name='calsync'").Scan(&dbVersion)
	if err != nil {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`)
		if err != nil {
			return err
		}
		_, err = db.Exec(`INSERT INTO db_version (name, version) VALUES ('calsync', 0)`)
		if err != nil {
			return err
		}
		dbVersion = 0
	}

	if dbVersion == 0 {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
		account_name TEXT PRIMARY KEY,
		token TEXT)`)
		if err != nil {
			return err
		}

		_, err = db.Exec(`UPDATE db_version SET version = 1 WHERE name = 'calsync'`)
		if err != nil {
			return err
		}
	}

	return nil
}
