package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/ukv-go/config"
)

func newDefinesCmd(root *rootOptions) *cobra.Command {
	var (
		backends []string
		libs     bool
	)

	cmd := &cobra.Command{
		Use:   "defines",
		Short: "Print the native definitions or link libraries for a selection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindSelection(cmd, root.v, backends); err != nil {
				return err
			}
			cfg, err := config.Load(root.v)
			if err != nil {
				return err
			}
			set := cfg.Build.Backends
			out := cmd.OutOrStdout()
			if libs {
				for _, l := range set.Libraries() {
					fmt.Fprintln(out, l)
				}
				return nil
			}
			for _, d := range set.Defines() {
				fmt.Fprintln(out, "-D"+d.String())
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&backends, "backend", nil, "backends to enable")
	cmd.Flags().BoolVar(&libs, "libs", false, "print link libraries instead of definitions")
	return cmd
}
