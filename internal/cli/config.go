package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/todostore/internal/logging"
	"github.com/mesh-intelligence/todostore/internal/paths"
	"github.com/mesh-intelligence/todostore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	defaultAddr   = "0.0.0.0:8000"
	defaultServer = "http://localhost:8000"
)

// Config keys. Nested keys map to nested YAML sections.
const (
	cfgKeyDriver   = "db.driver"
	cfgKeyHost     = "db.host"
	cfgKeyPort     = "db.port"
	cfgKeyName     = "db.name"
	cfgKeyUser     = "db.user"
	cfgKeyPassword = "db.password"
	cfgKeySSLMode  = "db.sslmode"
	cfgKeyPath     = "db.path"
	cfgKeyAddr     = "http.addr"
	cfgKeyLevel    = "log.level"
	cfgKeyFormat   = "log.format"
	cfgKeyOutput   = "log.output"
	cfgKeyMetrics  = "metrics.enabled"
	cfgKeyServer   = "server"
	cfgKeyDataDir  = "data_dir"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	cfgKeyDriver:   "DB_DRIVER",
	cfgKeyHost:     "DB_HOST",
	cfgKeyPort:     "DB_PORT",
	cfgKeyName:     "DB_NAME",
	cfgKeyUser:     "DB_USER",
	cfgKeyPassword: "DB_PASSWORD",
	cfgKeySSLMode:  "DB_SSLMODE",
	cfgKeyPath:     "DB_PATH",
	cfgKeyAddr:     "HTTP_ADDR",
	cfgKeyLevel:    "LOG_LEVEL",
	cfgKeyFormat:   "LOG_FORMAT",
	cfgKeyOutput:   "LOG_OUTPUT",
	cfgKeyMetrics:  "METRICS_ENABLED",
	cfgKeyServer:   "TODOSTORE_SERVER",
}

// flagBindings maps command flags, when the running command defines them,
// to config keys.
var flagBindings = map[string]string{
	"addr":   cfgKeyAddr,
	"driver": cfgKeyDriver,
	"server": cfgKeyServer,
}

// settings is the fully resolved configuration for one invocation.
type settings struct {
	ConfigDir string
	DataDir   string
	Store     types.Config
	Addr      string
	Log       logging.Config
	Metrics   bool
	Server    string
}

// loadSettings resolves directories and reads config.yaml, the environment,
// and the flags of cmd, in increasing order of precedence. A missing
// config.yaml is not an error.
func loadSettings(cmd *cobra.Command, f rootFlags) (*settings, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return nil, sysErr("resolve config dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	for name, key := range flagBindings {
		fl := cmd.Flags().Lookup(name)
		if fl == nil {
			continue
		}
		if err := v.BindPFlag(key, fl); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", name, err)
		}
	}

	dataDir, err := paths.ResolveDataDir(f.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysErr("resolve data dir: %w", err)
	}

	s := &settings{
		ConfigDir: configDir,
		DataDir:   dataDir,
		Store: types.Config{
			Driver:   strings.ToLower(v.GetString(cfgKeyDriver)),
			Host:     v.GetString(cfgKeyHost),
			Port:     v.GetInt(cfgKeyPort),
			Name:     v.GetString(cfgKeyName),
			User:     v.GetString(cfgKeyUser),
			Password: v.GetString(cfgKeyPassword),
			SSLMode:  v.GetString(cfgKeySSLMode),
			Path:     v.GetString(cfgKeyPath),
		},
		Addr: v.GetString(cfgKeyAddr),
		Log: logging.Config{
			Level:  v.GetString(cfgKeyLevel),
			Format: v.GetString(cfgKeyFormat),
			Output: v.GetString(cfgKeyOutput),
		},
		Metrics: v.GetBool(cfgKeyMetrics),
		Server:  v.GetString(cfgKeyServer),
	}
	if s.Store.Path == "" {
		s.Store.Path = paths.DatabasePath(dataDir)
	} else if !filepath.IsAbs(s.Store.Path) {
		s.Store.Path = filepath.Join(dataDir, s.Store.Path)
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyDriver, types.DriverPostgres)
	v.SetDefault(cfgKeyHost, types.DefaultHost)
	v.SetDefault(cfgKeyPort, types.DefaultPort)
	v.SetDefault(cfgKeyName, types.DefaultName)
	v.SetDefault(cfgKeyUser, types.DefaultUser)
	v.SetDefault(cfgKeyPassword, types.DefaultPassword)
	v.SetDefault(cfgKeySSLMode, types.DefaultSSLMode)
	v.SetDefault(cfgKeyAddr, defaultAddr)
	v.SetDefault(cfgKeyLevel, "info")
	v.SetDefault(cfgKeyFormat, logging.FormatJSON)
	v.SetDefault(cfgKeyMetrics, true)
	v.SetDefault(cfgKeyServer, defaultServer)
}
