package dbclient

import (
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"marketnav/internal/domain"
)

// newSQLiteConnector opens a local SQLite file, creating the parent
// directory when needed.
func newSQLiteConnector(conn *domain.DatabaseConnection) (*sqlConnector, error) {
	if conn.Host == "" {
		return nil, fmt.Errorf("sqlite: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(conn.Host), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	c, err := newSQLConnector(sqliteDialect.dsn(conn, ""), sqliteDialect)
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
	c.db.SetMaxOpenConns(1)
	return c, nil
}
