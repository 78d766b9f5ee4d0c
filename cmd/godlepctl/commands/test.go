package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// testCmd forwards its arguments verbatim as a "test ..." line, per
// spec.md §6's grammar (peer terminate|heartbeat|offer|init_ack|
// update_res|term_res|update, session_init 0|1, neighbor
// up|down|credit_up|metric_up|ipv4|ipv6|metrics|update_msg|rlq|
// resources|latency|cdr|mdr|mtu).
func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "test [object] [args...]",
		Short:              "Inject a scenario test action into the daemon",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return sendCommand(daemonAddr, "test "+strings.Join(args, " "))
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start discovery on the daemon's active peer session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return sendCommand(daemonAddr, "start")
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Request termination of the daemon's active peer session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return sendCommand(daemonAddr, "stop")
		},
	}
}
