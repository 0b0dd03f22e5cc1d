package server

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// dialect papers over the few differences between PostgreSQL and sqlite
type dialect struct {
	driver   string
	idColumn string
}

var (
	postgres = dialect{driver: "postgres", idColumn: "BIGSERIAL PRIMARY KEY"}
	sqlite   = dialect{driver: "sqlite", idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
)

var bindVar = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $n placeholders to sqlite's ?n
func (d dialect) rebind(query string) string {
	if d.driver == "postgres" {
		return query
	}
	return bindVar.ReplaceAllString(query, "?$1")
}

func openDB(url string) (*sql.DB, dialect, error) {
	d, dsn := sqlite, url
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		d = postgres
	case url == "":
		dsn = ":memory:"
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, d, err
	}
	if d == sqlite {
		// every new connection to :memory: would be a fresh database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, d, err
	}
	return db, d, nil
}

// migrate runs database migrations
func (s *Server) migrate() error {
	migrations := []string{
		fmt.Sprintf(migrationUsers, s.dialect.idColumn),
		migrationVerificationCodes,
		fmt.Sprintf(migrationTrialUsage, s.dialect.idColumn),
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id %s,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    role VARCHAR(16) NOT NULL DEFAULT 'user',
    trial_count INTEGER NOT NULL,
    created_at BIGINT NOT NULL
);
`

const migrationVerificationCodes = `
CREATE TABLE IF NOT EXISTS verification_codes (
    email VARCHAR(255) PRIMARY KEY,
    code VARCHAR(6) NOT NULL,
    expires_at BIGINT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    sent_at BIGINT NOT NULL
);
`

const migrationTrialUsage = `
CREATE TABLE IF NOT EXISTS trial_usage (
    id %s,
    user_id BIGINT NOT NULL REFERENCES users(id),
    demo_type VARCHAR(64) NOT NULL,
    used_at BIGINT NOT NULL
);
`
