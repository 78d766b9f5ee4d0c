// godlepctl -- command-line client for the godlep DLEP radio daemon.
package main

import "github.com/dantte-lp/godlep/cmd/godlepctl/commands"

func main() {
	commands.Execute()
}
