package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Migration is used to hold the database key and function for creating the migration.
type Migration struct {
	Executor func(*gorm.DB) error
	Key      string
}

func (m Migration) execute(db *gorm.DB) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := m.Executor(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	return nil
}

// migrateUp runs every migration not yet recorded in the migrations table,
// recording each as it completes.
func migrateUp(db *gorm.DB, migrations []Migration) error {
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	toRun, err := determineMigrationsToRun(db, migrations)
	if err != nil {
		return err
	}

	for _, m := range toRun {
		if err := m.execute(db); err != nil {
			return fmt.Errorf("migration %q failed: %w", m.Key, err)
		}

		if err := createMigrationRecord(db, m.Key); err != nil {
			return err
		}
	}

	return nil
}

func ensureMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			ran_at bigint,
			key text,
			CONSTRAINT migrations_key UNIQUE (key)
		)
	`).Error
}

type migrationKeyCol struct {
	Key string
}

func determineMigrationsToRun(db *gorm.DB, allMigrations []Migration) ([]Migration, error) {
	ranMigrations := []migrationKeyCol{}
	res := db.Raw("SELECT key FROM migrations;").Scan(&ranMigrations)
	if res.Error != nil {
		return nil, res.Error
	}

	if len(ranMigrations) == 0 {
		return allMigrations, nil
	}

	toRun := []Migration{}
	for _, candidate := range allMigrations {
		itsBeenRun := false
		for _, ran := range ranMigrations {
			if candidate.Key == ran.Key {
				itsBeenRun = true
				break
			}
		}

		if !itsBeenRun {
			toRun = append(toRun, candidate)
		}
	}

	return toRun, nil
}

func createMigrationRecord(db *gorm.DB, key string) error {
	return db.Exec(`INSERT INTO migrations (key, ran_at) VALUES (?, ?)`, key, time.Now().Unix()).Error
}

// Migrations is the full, ordered migration set for the service.
var Migrations = []Migration{
	{
		Key: "2023-03-01-create-user-tokens",
		Executor: func(db *gorm.DB) error {
			return db.Exec(`
				CREATE TABLE user_tokens (
					id SERIAL PRIMARY KEY,
					created_at timestamptz NOT NULL DEFAULT now(),
					updated_at timestamptz NOT NULL DEFAULT now(),
					google_user_id text NOT NULL,
					email text NOT NULL,
					google_profile_pic text,
					CONSTRAINT user_tokens_email UNIQUE (email)
				)
			`).Error
		},
	},
}
