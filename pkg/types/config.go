package types

import (
	"errors"
	"strings"
)

// Config holds the database connection parameters for Store.Open.
// The field names mirror the DB_* environment variables the server reads.
type Config struct {
	Driver   string `json:"driver" yaml:"driver" mapstructure:"driver"`
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"-" yaml:"password,omitempty" mapstructure:"password"`
	SSLMode  string `json:"sslmode" yaml:"sslmode,omitempty" mapstructure:"sslmode"`

	// Path is the database file for the sqlite driver. Ignored by postgres.
	Path string `json:"path" yaml:"path,omitempty" mapstructure:"path"`
}

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connection defaults, matching the environment defaults of the server.
const (
	DefaultHost     = "localhost"
	DefaultName     = "testdb"
	DefaultUser     = "postgres"
	DefaultPassword = "password"
	DefaultPort     = 5432
	DefaultSSLMode  = "disable"
)

// Config validation errors.
var (
	ErrDriverEmpty   = errors.New("driver must not be empty")
	ErrDriverUnknown = errors.New("unknown driver")
	ErrHostEmpty     = errors.New("host must not be empty")
	ErrNameEmpty     = errors.New("database name must not be empty")
	ErrPortInvalid   = errors.New("port must be between 1 and 65535")
	ErrPathEmpty     = errors.New("sqlite path must not be empty")
)

var knownDrivers = map[string]bool{
	DriverPostgres: true,
	DriverSQLite:   true,
}

// DefaultConfig returns a postgres configuration with the standard defaults.
func DefaultConfig() Config {
	return Config{
		Driver:   DriverPostgres,
		Host:     DefaultHost,
		Port:     DefaultPort,
		Name:     DefaultName,
		User:     DefaultUser,
		Password: DefaultPassword,
		SSLMode:  DefaultSSLMode,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	driver := strings.ToLower(c.Driver)
	if driver == "" {
		return ErrDriverEmpty
	}
	if !knownDrivers[driver] {
		return ErrDriverUnknown
	}
	if driver == DriverSQLite {
		if c.Path == "" {
			return ErrPathEmpty
		}
		return nil
	}
	if c.Host == "" {
		return ErrHostEmpty
	}
	if c.Name == "" {
		return ErrNameEmpty
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrPortInvalid
	}
	return nil
}
