package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	ukv "github.com/wippyai/ukv-go"
	"github.com/wippyai/ukv-go/bindgen"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config or logger is needed.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ukvbuild %s (generator %s, %s)\n",
				ukv.Version, bindgen.Version, runtime.Version())
		},
	}
}
