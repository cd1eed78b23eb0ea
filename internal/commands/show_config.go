// internal/commands/show_config.go
package skycast

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// showConfigCmd implements the 'config' command, which displays the current
// configuration after file values and flag overrides are merged.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON config is loaded properly and overridden by flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(out, "Config file: %s\n\n", file)
		} else {
			fmt.Fprintln(out, "No config file loaded (using defaults).")
		}

		cfg := GetConfig()
		if cfg == nil {
			return
		}

		fmt.Fprintf(out, "  Debug:            %v\n", cfg.Debug)
		fmt.Fprintf(out, "  MCP Mode:         %v\n", cfg.MCPMode)
		fmt.Fprintf(out, "  MCP Binary:       %s\n", cfg.MCPBinaryPath())
		fmt.Fprintf(out, "  MCP Init Timeout: %s\n", cfg.MCPInitTimeoutDuration())
		fmt.Fprintf(out, "  Weather Base URL: %s\n", cfg.WeatherBaseURL)
		fmt.Fprintf(out, "  Weather Detail:   %s\n", cfg.WeatherDetail)
		fmt.Fprintf(out, "  Weather Timeout:  %s\n", cfg.WeatherTimeoutDuration())
		fmt.Fprintf(out, "  Insecure TLS:     %v\n", cfg.WeatherInsecure)
		fmt.Fprintf(out, "  Listen Address:   %s\n", cfg.ListenAddress())
		fmt.Fprintf(out, "  Rate Limit:       %d req/min\n", cfg.RateLimitPerMinute())
		fmt.Fprintf(out, "  Log File:         %s\n", cfg.LogFilePath())

		if len(cfg.Hosts) > 0 {
			fmt.Fprintln(out, "\nHosts:")
			pp.Println(cfg.Hosts)
		}
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}
