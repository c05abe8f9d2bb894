// gop4tgctl is the CLI client for the gop4tg daemon.
package main

import "github.com/dantte-lp/gop4tg/cmd/gop4tgctl/commands"

func main() {
	commands.Execute()
}
