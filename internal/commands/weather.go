// internal/commands/weather.go
package skycast

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mvenner/skycast/internal/render"
	"github.com/mvenner/skycast/internal/wttr"
)

var (
	successMark = color.New(color.FgGreen).SprintFunc()
	failureMark = color.New(color.FgRed).SprintFunc()
)

// weatherCmd implements 'skycast weather <city>': fetch, normalize, and print
// a report for the given location.
var weatherCmd = &cobra.Command{
	Use:   "weather <city>",
	Short: "Look up current conditions and forecast for a city",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		query := strings.Join(args, " ")

		detail, err := wttr.ParseDetail(cfg.WeatherDetail)
		if err != nil {
			return err
		}

		client := weatherClientFromConfig(cfg)
		weather, err := client.Lookup(cmd.Context(), query, detail)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), failureMark("✗"), err)
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), successMark("✓"), "weather for", query)
		fmt.Fprintln(cmd.OutOrStdout(), render.Report(weather))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
}
