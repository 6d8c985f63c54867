// Command feedctl drives the Bella Fruita apple-sorting feeder conveyor:
// it polls two Modbus/TCP terminals, evaluates the ladder-logic rule set,
// and publishes a snapshot for any attached UI (SPEC_FULL.md).
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// CLICommand is the root command group, following the teacher's
// Commander-in-root-package split (mbcli.CLICommand). "run" is the
// primary (so far only) subcommand.
type CLICommand struct {
	Run RunCommand `command:"run" description:"run the feeder control loop"`
}

func main() {
	clicmd := CLICommand{}
	parser := flags.NewParser(&clicmd, flags.HelpFlag|flags.PassDoubleDash)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Println(err)
		os.Exit(1)
	}
}
