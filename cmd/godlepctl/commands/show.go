package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// showCmd forwards its arguments verbatim as a "show ..." line, per
// spec.md §6's grammar (system timer, peer all|fsm_history|fsm_table,
// neighbor mac <MAC>|all|fsm_history <MAC>|fsm_table).
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "show [object] [args...]",
		Short:               "Query daemon state (forwarded, fire-and-forget)",
		Long:                "Injects a \"show ...\" command into the daemon. Results are not returned over the wire; check the daemon's logs.",
		Args:                cobra.MinimumNArgs(1),
		DisableFlagParsing:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return sendCommand(daemonAddr, "show "+strings.Join(args, " "))
		},
	}
}
