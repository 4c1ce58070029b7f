package db

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the ledger tables if they don't exist.
func InitSchema(db *sql.DB) error {
	log.Info("Initializing ledger schema...")

	reportsTableSQL := `
	CREATE TABLE IF NOT EXISTS reports(
		id BIGINT NOT NULL AUTO_INCREMENT,
		user_id VARCHAR(255) NOT NULL,
		category VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT,
		severity VARCHAR(32) NOT NULL DEFAULT '',
		location_text VARCHAR(255) NOT NULL DEFAULT '',
		latitude DOUBLE,
		longitude DOUBLE,
		location_cell VARCHAR(32) NOT NULL DEFAULT '',
		image_hash VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL,
		ts DATETIME(6) NOT NULL,
		PRIMARY KEY (id),
		INDEX user_ts_index (user_id, ts)
	)`
	if _, err := db.Exec(reportsTableSQL); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	rewardGrantsTableSQL := `
	CREATE TABLE IF NOT EXISTS reward_grants(
		id BIGINT NOT NULL AUTO_INCREMENT,
		user_id VARCHAR(255) NOT NULL,
		report_id BIGINT NOT NULL,
		points INT NOT NULL,
		ts DATETIME(6) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE INDEX report_id_index (report_id),
		INDEX user_id_index (user_id),
		FOREIGN KEY (report_id) REFERENCES reports(id)
	)`
	if _, err := db.Exec(rewardGrantsTableSQL); err != nil {
		return fmt.Errorf("failed to create reward_grants table: %w", err)
	}

	certificatesTableSQL := `
	CREATE TABLE IF NOT EXISTS certificates(
		cert_id VARCHAR(16) NOT NULL,
		report_id BIGINT NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		category VARCHAR(255) NOT NULL,
		action_ts DATETIME(6) NOT NULL,
		issued_at DATETIME(6) NOT NULL,
		PRIMARY KEY (cert_id),
		UNIQUE INDEX report_id_index (report_id),
		FOREIGN KEY (report_id) REFERENCES reports(id)
	)`
	if _, err := db.Exec(certificatesTableSQL); err != nil {
		return fmt.Errorf("failed to create certificates table: %w", err)
	}

	log.Info("Ledger schema initialization completed")
	return nil
}
