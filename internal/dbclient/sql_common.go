package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketnav/internal/etl"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	dialect dialect
	db      *sql.DB
}

// newSQLConnector opens a database/sql pool for the dialect's driver.
func newSQLConnector(dsn string, d dialect) (*sqlConnector, error) {
	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	// One batch writer; a small pool is plenty.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlConnector{dialect: d, db: db}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// ReplaceTable drops, recreates and fills the table inside one transaction,
// so a failed load leaves the previous contents in place where the engine
// supports transactional DDL (SQLite, Postgres).
func (c *sqlConnector) ReplaceTable(ctx context.Context, name string, t *etl.Table) (int, error) {
	if len(t.Schema.Fields) == 0 {
		return 0, fmt.Errorf("replace %s: table has no columns", name)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+c.dialect.quote(name)); err != nil {
		return 0, fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, c.dialect.createTableSQL(name, t.Schema)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, c.dialect.insertSQL(name, t.Schema))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	args := make([]any, len(t.Schema.Fields))
	for i, rec := range t.Records {
		for j, f := range t.Schema.Fields {
			args[j] = columnValue(f, rec.Data[f.Name])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return written, fmt.Errorf("insert row %d: %w", i, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// columnValue converts a cell to the Go type stored for the column.
func columnValue(f etl.Field, v any) any {
	if v == nil {
		return nil
	}
	if f.Type == etl.TypeNumber {
		if n, ok := etl.ToNumber(v); ok {
			return n
		}
		return nil
	}
	return etl.FormatValue(v)
}

func (c *sqlConnector) ReadTable(ctx context.Context, name string) (*etl.Table, error) {
	cols, err := c.Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", name)
	}

	t := &etl.Table{Name: name}
	quoted := make([]string, len(cols))
	for i, col := range cols {
		typ := etl.TypeText
		if isNumberType(col.Type) {
			typ = etl.TypeNumber
		}
		t.Schema.Fields = append(t.Schema.Fields, etl.Field{Name: col.Name, Type: typ})
		quoted[i] = c.dialect.quote(col.Name)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), c.dialect.quote(name))
	if c.dialect.name == sqliteDialect.name {
		query += " ORDER BY rowid"
	}
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for j, v := range values {
			values[j] = formatValue(t.Schema.Fields[j], v)
		}
		t.Append(values...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return t, nil
}

// formatValue converts a scanned database value to the table's cell types.
func formatValue(f etl.Field, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	if f.Type == etl.TypeNumber {
		if n, ok := etl.ToNumber(v); ok {
			return n
		}
		return nil
	}
	return etl.FormatValue(v)
}

// CountRows counts the rows of a table without reading them.
func (c *sqlConnector) CountRows(ctx context.Context, name string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.dialect.quote(name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (c *sqlConnector) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if c.dialect.name == sqliteDialect.name {
		return c.sqliteColumns(ctx, table)
	}
	return c.infoSchemaColumns(ctx, table)
}

// sqliteColumns uses PRAGMA table_info.
func (c *sqlConnector) sqliteColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", c.dialect.quote(table)))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols = append(cols, ColumnInfo{Name: name, Type: colType})
	}
	return cols, rows.Err()
}

// infoSchemaColumns works for MySQL and Postgres via INFORMATION_SCHEMA.
func (c *sqlConnector) infoSchemaColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	query := fmt.Sprintf(`SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_NAME = %s ORDER BY ORDINAL_POSITION`, c.dialect.placeholder(1))
	rows, err := c.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var ci ColumnInfo
		if err := rows.Scan(&ci.Name, &ci.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, ci)
	}
	return cols, rows.Err()
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}
