// Command bootstrap prepares a fresh deployment: it applies the relational
// schema used by the fallback and audit stores, then seeds an initial admin
// account so the API is reachable before any other user exists.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/acadchain-api/pkg/config"
	"github.com/noah-isme/acadchain-api/pkg/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name     TEXT NOT NULL,
		role          TEXT NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		last_login    TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS consents (
		consent_id      TEXT PRIMARY KEY,
		student_id      TEXT NOT NULL,
		requester_id    TEXT NOT NULL,
		scope           TEXT NOT NULL,
		semester_number INTEGER,
		status          TEXT NOT NULL,
		granted_at      TIMESTAMPTZ NOT NULL,
		revoked_at      TIMESTAMPTZ,
		revoke_reason   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_consents_pair ON consents (student_id, requester_id, status)`,
	`CREATE TABLE IF NOT EXISTS document_archives (
		id          TEXT PRIMARY KEY,
		doc_id      TEXT NOT NULL,
		version     INTEGER NOT NULL,
		snapshot    BYTEA NOT NULL,
		status      TEXT NOT NULL,
		archived_by TEXT NOT NULL,
		archived_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_archives_doc ON document_archives (doc_id, version)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		entity_id  TEXT NOT NULL,
		message    TEXT NOT NULL,
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		resource_id TEXT,
		new_values  JSONB,
		ip_address  TEXT NOT NULL DEFAULT '',
		user_agent  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL
	)`,
}

func main() {
	var (
		adminEmail    string
		adminPassword string
		adminName     string
		skipSeed      bool
	)

	flag.StringVar(&adminEmail, "admin-email", "admin@acadchain.local", "email for the seeded admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the seeded admin account (required unless -skip-seed)")
	flag.StringVar(&adminName, "admin-name", "Administrator", "display name for the seeded admin account")
	flag.BoolVar(&skipSeed, "skip-seed", false, "apply the schema only, do not create an admin user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}
	log.Println("schema applied")

	if skipSeed {
		return
	}

	if adminPassword == "" {
		log.Fatal("admin-password is required (or pass -skip-seed)")
	}

	if err := seedAdmin(ctx, db, adminEmail, adminPassword, adminName); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
}

func seedAdmin(ctx context.Context, db *sqlx.DB, email, password, name string) error {
	var existing string
	err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&existing)
	if err == nil {
		log.Printf("admin %s already exists (%s), skipping seed", email, existing)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup existing admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'ADMIN', TRUE, $5, $5)`,
		id, email, string(hash), name, now)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	log.Printf("seeded admin %s (%s)", email, id)
	return nil
}
