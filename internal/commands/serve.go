// internal/commands/serve.go
package skycast

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvenner/skycast/internal/api"
	"github.com/mvenner/skycast/internal/logging"
	"github.com/mvenner/skycast/internal/wttr"
)

// serveCmd implements 'skycast serve': the REST surface over the weather core.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve weather lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		detail, err := wttr.ParseDetail(cfg.WeatherDetail)
		if err != nil {
			return err
		}

		client := weatherClientFromConfig(cfg)
		handlers := api.NewHandlers(client, detail)
		router := api.NewRouter(handlers, cfg.RateLimitPerMinute())

		addr := cfg.ListenAddress()
		srv := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.WeatherTimeoutDuration() + 5*time.Second,
		}

		logging.LogEvent("REST server listening on %s", addr)
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
		return srv.ListenAndServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
