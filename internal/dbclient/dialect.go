package dbclient

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"marketnav/internal/domain"
	"marketnav/internal/etl"
)

// dialect captures the SQL differences between the supported engines.
type dialect struct {
	name        string // database/sql driver name
	quote       func(ident string) string
	placeholder func(n int) string // 1-based
	numberType  string
	textType    string
	dsn         func(conn *domain.DatabaseConnection, password string) string
}

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

var sqliteDialect = dialect{
	name:        "sqlite",
	quote:       doubleQuote,
	placeholder: func(int) string { return "?" },
	numberType:  "REAL",
	textType:    "TEXT",
	// Rollback journal keeps the store a single file.
	dsn: func(conn *domain.DatabaseConnection, _ string) string {
		return conn.Host + "?_pragma=busy_timeout(5000)"
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	quote:       doubleQuote,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	numberType:  "DOUBLE PRECISION",
	textType:    "TEXT",
	dsn:         postgresURL,
}

var mysqlDialect = dialect{
	name: "mysql",
	quote: func(ident string) string {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	},
	placeholder: func(int) string { return "?" },
	numberType:  "DOUBLE",
	textType:    "TEXT",
	dsn:         mysqlDSN,
}

// postgresURL builds a lib/pq connection URL. Credentials are escaped, so
// passwords may contain any character.
func postgresURL(conn *domain.DatabaseConnection, password string) string {
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(conn.Host, strconv.Itoa(portOr(conn.Port, 5432))),
		Path:     "/" + conn.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if conn.Username != "" {
		u.User = url.UserPassword(conn.Username, password)
	}
	return u.String()
}

// mysqlDSN builds the DSN through the driver's own Config so escaping and
// parameter order follow the driver.
func mysqlDSN(conn *domain.DatabaseConnection, password string) string {
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(portOr(conn.Port, 3306)))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Collation = "utf8mb4_unicode_ci"
	if conn.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

func portOr(port, def int) int {
	if port == 0 {
		return def
	}
	return port
}

func (d dialect) columnType(f etl.Field) string {
	if f.Type == etl.TypeNumber {
		return d.numberType
	}
	return d.textType
}

// createTableSQL builds the CREATE TABLE statement for a schema.
func (d dialect) createTableSQL(table string, s etl.Schema) string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = d.quote(f.Name) + " " + d.columnType(f)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.quote(table), strings.Join(cols, ", "))
}

// insertSQL builds a single-row INSERT for a schema.
func (d dialect) insertSQL(table string, s etl.Schema) string {
	cols := make([]string, len(s.Fields))
	marks := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = d.quote(f.Name)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// isNumberType reports whether a database type name holds floating values.
func isNumberType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT", "FLOAT8", "FLOAT4", "NUMERIC", "DECIMAL", "INTEGER", "INT", "BIGINT", "INT8", "INT4":
		return true
	}
	return false
}
