package main

import (
	"fmt"
	"os"

	"github.com/zeu5/qfuzz/commands"
)

// main entry point, optionally takes the start string as the argument of the fuzz command
func main() {
	rootCommand := commands.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
