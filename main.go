// Command gateway serves the department chat gateway: dual-mode caller
// authentication in front of a streaming relay to an OpenAI-compatible
// completion service.
//
// Usage:
//
//	# Start the gateway (default command)
//	gateway serve --config gateway.yaml
//
//	# Mint a bearer token for a production caller
//	gateway token --sub alice
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/system"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Department chat gateway",
	Long: `Department chat gateway authenticates callers with either a trusted
X-Mock-User header (development) or a signed bearer token (production),
and relays their conversations to an OpenAI-compatible completion service.`,
	Version:       system.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_FILE"), "YAML config file (environment variables override it)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
