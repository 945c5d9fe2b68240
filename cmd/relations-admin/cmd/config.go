package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk CLI configuration.
type Config struct {
	APIVersion     string         `yaml:"apiVersion"`
	Kind           string         `yaml:"kind"`
	CurrentContext string         `yaml:"current-context"`
	Contexts       []NamedContext `yaml:"contexts"`
}

// NamedContext pairs a context name with its connection details.
type NamedContext struct {
	Name    string        `yaml:"name"`
	Context ContextDetail `yaml:"context"`
}

// ContextDetail holds the connection settings of one environment.
type ContextDetail struct {
	DBHost     string `yaml:"db-host"`
	DBPort     int    `yaml:"db-port"`
	DBUser     string `yaml:"db-user"`
	DBPassword string `yaml:"db-password,omitempty"`
	DBName     string `yaml:"db-name"`
	DBSSLMode  string `yaml:"db-sslmode,omitempty"`
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".contentgraph")
}

func configPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func loadConfig() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func saveConfig(cfg *Config) error {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "admin.contentgraph.dev/v1"
	}
	if cfg.Kind == "" {
		cfg.Kind = "Config"
	}

	if err := os.MkdirAll(configDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0600)
}

// GetContext returns the named context, or nil.
func (c *Config) GetContext(name string) *NamedContext {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i]
		}
	}
	return nil
}

// SetContext adds or replaces a context.
func (c *Config) SetContext(name string, ctx ContextDetail) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			c.Contexts[i].Context = ctx
			return
		}
	}
	c.Contexts = append(c.Contexts, NamedContext{Name: name, Context: ctx})
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration contexts",
}

var (
	flagSetHost     string
	flagSetPort     int
	flagSetUser     string
	flagSetPassword string
	flagSetDBName   string
	flagSetSSLMode  string
)

var configSetContextCmd = &cobra.Command{
	Use:   "set-context NAME",
	Short: "Create or update a connection context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			cfg = &Config{}
		}

		cfg.SetContext(args[0], ContextDetail{
			DBHost:     flagSetHost,
			DBPort:     flagSetPort,
			DBUser:     flagSetUser,
			DBPassword: flagSetPassword,
			DBName:     flagSetDBName,
			DBSSLMode:  flagSetSSLMode,
		})
		if cfg.CurrentContext == "" {
			cfg.CurrentContext = args[0]
		}

		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Context %q saved.\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context NAME",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.GetContext(args[0]) == nil {
			return fmt.Errorf("context %q not found", args[0])
		}
		cfg.CurrentContext = args[0]
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q.\n", args[0])
		return nil
	},
}

var configGetContextsCmd = &cobra.Command{
	Use:   "get-contexts",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		t := newTable("CURRENT", "NAME", "HOST", "DATABASE")
		for _, c := range cfg.Contexts {
			current := ""
			if c.Name == cfg.CurrentContext {
				current = "*"
			}
			t.AddRow(current, c.Name,
				fmt.Sprintf("%s:%d", c.Context.DBHost, c.Context.DBPort),
				c.Context.DBName)
		}
		t.Flush()
		return nil
	},
}

func init() {
	configSetContextCmd.Flags().StringVar(&flagSetHost, "db-host", "localhost", "Database host")
	configSetContextCmd.Flags().IntVar(&flagSetPort, "db-port", 5432, "Database port")
	configSetContextCmd.Flags().StringVar(&flagSetUser, "db-user", "contentgraph", "Database user")
	configSetContextCmd.Flags().StringVar(&flagSetPassword, "db-password", "", "Database password")
	configSetContextCmd.Flags().StringVar(&flagSetDBName, "db-name", "contentgraph", "Database name")
	configSetContextCmd.Flags().StringVar(&flagSetSSLMode, "db-sslmode", "disable", "Database SSL mode")

	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextsCmd)
}
