// Command barsupervisord is the status-bar supervisor daemon and its
// control-client CLI, wired with spf13/cobra + spf13/pflag subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/edirooss/barsupervisord/cmd/barsupervisord/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
