package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds the metadata for connecting to a store.
// The password is kept out of this struct and passed separately.
type DatabaseConnection struct {
	Name     string         `json:"name" yaml:"name"`
	Driver   DatabaseDriver `json:"driver" yaml:"driver"`
	Host     string         `json:"host" yaml:"host"`         // hostname, file path (sqlite) or mongodb:// URI
	Port     int            `json:"port" yaml:"port"`         // 0 for sqlite
	Database string         `json:"database" yaml:"database"` // db name or empty for sqlite
	Username string         `json:"username" yaml:"username"`
	SSLMode  string         `json:"sslMode" yaml:"ssl_mode"`
}
