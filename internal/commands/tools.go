// internal/commands/tools.go
package skycast

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvenner/skycast/servers/mcp/tools"
)

// toolsCmd lists the tools the MCP server advertises.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed to models and MCP clients",
	Run: func(cmd *cobra.Command, args []string) {
		for _, def := range tools.Catalog() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", def.Name, def.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
