package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// shellCommands lists the available commands for the interactive shell help output.
var shellCommands = []struct {
	name string
	desc string
}{
	{"start", "Start discovery on the active peer session"},
	{"stop", "Request peer session termination"},
	{"show system timer", "Show the timing wheel's current slot"},
	{"show peer all|fsm_history|fsm_table", "Query peer state or FSM introspection"},
	{"show neighbor mac <MAC>|all|fsm_history <MAC>|fsm_table", "Query neighbor state"},
	{"test peer <subcommand> ...", "Inject a peer-scoped test action"},
	{"test neighbor <subcommand> ...", "Inject a neighbor-scoped test action"},
	{"test session_init 0|1", "Toggle test session-init acknowledgment mode"},
	{"version", "Print build information"},
	{"help", "Show this help message"},
	{"exit / quit", "Leave the interactive shell"},
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive godlepctl shell",
		Long:  "Launches a simple REPL that injects spec.md §6 CLI lines into the daemon. Type 'help', 'exit', or 'quit'.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printShellBanner()
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("godlepctl> ")

			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "exit" || line == "quit":
					return nil
				case line == "help" || line == "?":
					printShellHelp()
				case line == "version":
					rootCmd.SetArgs([]string{"version"})
					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
				case line != "":
					if err := sendCommand(daemonAddr, line); err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
				}

				fmt.Print("godlepctl> ")
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			return nil
		},
	}
}

// printShellBanner prints a welcome message when the shell starts.
func printShellBanner() {
	fmt.Println("godlepctl interactive shell. Type 'help' for available commands, 'exit' to quit.")
	fmt.Println()
}

// printShellHelp prints a formatted list of available shell commands.
func printShellHelp() {
	fmt.Println("Available commands:")
	fmt.Println()

	for _, cmd := range shellCommands {
		fmt.Printf("  %-55s %s\n", cmd.name, cmd.desc)
	}

	fmt.Println()
}
