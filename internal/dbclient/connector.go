package dbclient

import (
	"context"
	"fmt"

	"marketnav/internal/domain"
	"marketnav/internal/etl"
)

// ColumnInfo describes a column/field of a stored table.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Connector abstracts a store that can hold one named table.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// ReplaceTable drops any existing table of that name, recreates it
	// from the table schema and inserts every row in order.
	ReplaceTable(ctx context.Context, name string, t *etl.Table) (int, error)

	// Columns describes the stored columns of a table.
	Columns(ctx context.Context, name string) ([]ColumnInfo, error)

	// CountRows returns the number of stored rows.
	CountRows(ctx context.Context, name string) (int64, error)

	// Close closes the connection.
	Close() error
}

// TableReader is implemented by connectors that can load a stored table
// back into memory. The SQL stores do; the document mirror is write-only.
type TableReader interface {
	ReadTable(ctx context.Context, name string) (*etl.Table, error)
}

// ReadTable reads a stored table back in insertion order.
func ReadTable(ctx context.Context, c Connector, name string) (*etl.Table, error) {
	r, ok := c.(TableReader)
	if !ok {
		return nil, fmt.Errorf("%T cannot read tables back", c)
	}
	return r.ReadTable(ctx, name)
}

// NewConnector creates a Connector for the given database connection.
// The password must be provided separately.
func NewConnector(conn *domain.DatabaseConnection, password string) (Connector, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite, "":
		return newSQLiteConnector(conn)
	case domain.DatabaseDriverMySQL:
		return newSQLConnector(mysqlDialect.dsn(conn, password), mysqlDialect)
	case domain.DatabaseDriverPostgres:
		return newSQLConnector(postgresDialect.dsn(conn, password), postgresDialect)
	case domain.DatabaseDriverMongoDB:
		return newMongoConnector(conn, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
