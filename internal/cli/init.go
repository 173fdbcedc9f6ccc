package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/todostore/pkg/store"
)

// configFile holds the structure written to config.yaml.
// The database password is never written; it comes from DB_PASSWORD.
type configFile struct {
	DB struct {
		Driver  string `yaml:"driver"`
		Host    string `yaml:"host,omitempty"`
		Port    int    `yaml:"port,omitempty"`
		Name    string `yaml:"name,omitempty"`
		User    string `yaml:"user,omitempty"`
		SSLMode string `yaml:"sslmode,omitempty"`
		Path    string `yaml:"path,omitempty"`
	} `yaml:"db"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Server  string `yaml:"server,omitempty"`
	DataDir string `yaml:"data_dir,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize todostore configuration and storage",
		Long: `Init writes a default config.yaml to the configuration directory if none
exists, then connects to the configured database and creates the todos table.

Example:
  todostore init --driver sqlite
  DB_HOST=db.internal todostore init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a.settings)
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "database driver: postgres or sqlite")
	return cmd
}

func runInit(cmd *cobra.Command, s *settings) error {
	if err := os.MkdirAll(s.ConfigDir, 0o755); err != nil {
		return sysErr("create config directory: %w", err)
	}

	configPath := filepath.Join(s.ConfigDir, configFileExt)
	written, err := writeConfigIfMissing(configPath, s)
	if err != nil {
		return sysErr("write config: %w", err)
	}

	if err := s.Store.Validate(); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	st, err := store.Open(cmd.Context(), s.Store)
	if err != nil {
		return sysErr("initialize storage: %w", err)
	}
	if err := st.Close(); err != nil {
		return sysErr("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "Todostore initialized (%s)\n", s.Store.Driver)
	return nil
}

// writeConfigIfMissing creates config.yaml from s if the file does not exist.
// It reports whether a file was written.
func writeConfigIfMissing(path string, s *settings) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	var cfg configFile
	cfg.DB.Driver = s.Store.Driver
	cfg.DB.Host = s.Store.Host
	cfg.DB.Port = s.Store.Port
	cfg.DB.Name = s.Store.Name
	cfg.DB.User = s.Store.User
	cfg.DB.SSLMode = s.Store.SSLMode
	cfg.DB.Path = s.Store.Path
	cfg.HTTP.Addr = s.Addr
	cfg.Log.Level = s.Log.Level
	cfg.Log.Format = s.Log.Format
	cfg.Metrics.Enabled = s.Metrics
	cfg.Server = s.Server
	cfg.DataDir = s.DataDir

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
