package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// daemonAddr is the godlep daemon's UDP discovery address (host:port)
// that scenario-injection frames are sent to.
var daemonAddr string

// rootCmd is the top-level cobra command for godlepctl.
var rootCmd = &cobra.Command{
	Use:   "godlepctl",
	Short: "CLI client for the godlep DLEP radio daemon",
	Long: "godlepctl injects spec.md §6 CLI commands into a running godlep " +
		"daemon over its UDP discovery socket, using the scenario-injection " +
		"sentinel mechanism. Commands are fire-and-forget: the daemon does " +
		"not reply over this channel, so results surface in the daemon's " +
		"own logs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", "127.0.0.1:854",
		"godlep daemon UDP address (host:port)")

	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(testCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
