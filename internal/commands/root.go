// internal/commands/root.go
package skycast

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvenner/skycast/internal/appconfig"
	"github.com/mvenner/skycast/internal/logging"
	"github.com/mvenner/skycast/internal/wttr"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skycast",
	Short: "skycast — weather lookups over wttr.in with MCP, REST, and LLM tool-calling surfaces",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		var cfg appconfig.Config
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			loaded, err := appconfig.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("config file %q not accessible: %w", cfgFile, statErr)
		}

		// Bound flags override file values; unchanged flags fall back to the
		// config file through viper.
		cfg.Debug = viper.GetBool("debug")
		cfg.MCPMode = viper.GetBool("mcpMode")
		if v := viper.GetString("mcpBinary"); v != "" {
			cfg.MCPBinary = v
		}
		if v := viper.GetInt("mcpInitTimeout"); v > 0 {
			cfg.MCPInitTimeout = v
		}
		if v := viper.GetString("logFile"); v != "" {
			cfg.LogFile = v
		}
		cfg.WeatherInsecure = viper.GetBool("weatherInsecure")
		if v := viper.GetString("weatherDetail"); v != "" {
			cfg.WeatherDetail = v
		}
		if v := viper.GetString("listen"); v != "" {
			cfg.ListenAddr = v
		}
		cfg.ConfigPath = cfgFile

		if _, err := wttr.ParseDetail(cfg.WeatherDetail); err != nil {
			return err
		}

		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.json", "config file (e.g., config/config.json)")

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("mcp", false, "proxy LLM traffic through the MCP server")
	rootCmd.PersistentFlags().String("mcpBinary", "", "path to the MCP server binary (defaults per OS)")
	rootCmd.PersistentFlags().Int("mcpInitTimeout", 0, "seconds to wait for MCP startup (0 = default)")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")
	rootCmd.PersistentFlags().Bool("insecure", false, "skip TLS certificate verification on weather requests")
	rootCmd.PersistentFlags().String("detail", "", "weather detail level: minimal or full")
	rootCmd.PersistentFlags().String("listen", "", "listen address for the REST server")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("mcpMode", rootCmd.PersistentFlags().Lookup("mcp"))
	_ = viper.BindPFlag("mcpBinary", rootCmd.PersistentFlags().Lookup("mcpBinary"))
	_ = viper.BindPFlag("mcpInitTimeout", rootCmd.PersistentFlags().Lookup("mcpInitTimeout"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
	_ = viper.BindPFlag("weatherInsecure", rootCmd.PersistentFlags().Lookup("insecure"))
	_ = viper.BindPFlag("weatherDetail", rootCmd.PersistentFlags().Lookup("detail"))
	_ = viper.BindPFlag("listen", rootCmd.PersistentFlags().Lookup("listen"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config into viper so bound flags can fall back
// to file values. A missing file is fine; defaults apply.
func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// MCPModeEnabled returns true if MCP mode is enabled.
func MCPModeEnabled() bool { return viper.GetBool("mcpMode") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// weatherClientFromConfig builds the wttr client the commands share.
func weatherClientFromConfig(cfg *appconfig.Config) *wttr.Client {
	return wttr.NewClient(wttr.ClientOptions{
		BaseURL:   cfg.WeatherBaseURL,
		UserAgent: cfg.WeatherUserAgent,
		Insecure:  cfg.WeatherInsecure,
		Timeout:   cfg.WeatherTimeoutDuration(),
	})
}
