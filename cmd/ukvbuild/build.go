package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/ukv-go/config"
	"github.com/wippyai/ukv-go/pipeline"
)

var buildFlagKeys = map[string]string{
	"source":   config.KeySource,
	"out":      config.KeyOut,
	"profile":  config.KeyProfile,
	"strategy": config.KeyStrategy,
	"jobs":     config.KeyJobs,
	"compiler": config.KeyCompiler,
	"bindings": config.KeyBindings,
	"package":  config.KeyPackage,
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	var (
		backends    []string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the engine, expand its header and write the bindings",
		Example: `  ukvbuild build --backend rocksdb
  ukvbuild build --backend umem,flight-client --profile debug
  UKV_BACKENDS_LEVELDB=1 ukvbuild build
  ukvbuild build -i`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(cmd, root.v, buildFlagKeys); err != nil {
				return err
			}
			if err := bindSelection(cmd, root.v, backends); err != nil {
				return err
			}
			cfg, err := config.Load(root.v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if interactive {
				if !isTerminal(os.Stdout) {
					return fmt.Errorf("interactive mode needs a terminal")
				}
				return runInteractive(ctx, cfg, cmd.OutOrStdout())
			}

			res, err := pipeline.Run(ctx, cfg)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res, isTerminal(os.Stdout))
			return nil
		},
	}

	f := cmd.Flags()
	addPipelineFlags(cmd)
	f.String("source", "", "engine source root (holds CMakeLists.txt)")
	f.String("profile", "", "build profile: release or debug")
	f.String("strategy", "", "build strategy: toolchain or direct")
	f.Int("jobs", 0, "parallel compile jobs (default: logical cores)")
	f.StringSliceVar(&backends, "backend", nil, "backends to enable: umem, leveldb, rocksdb, flight-client, flight-server")
	f.BoolVarP(&interactive, "interactive", "i", false, "pick backends in a terminal UI")
	return cmd
}

func newBindgenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindgen",
		Short: "Regenerate the bindings from the last build without compiling",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(cmd, root.v, buildFlagKeys); err != nil {
				return err
			}
			cfg, err := config.Load(root.v)
			if err != nil {
				return err
			}
			res, err := pipeline.Regenerate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res, isTerminal(os.Stdout))
			return nil
		},
	}
	addPipelineFlags(cmd)
	return cmd
}

// addPipelineFlags registers the flags shared by build and bindgen.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("out", "", "build output directory")
	f.String("compiler", "", "C compiler used to expand the header")
	f.String("bindings", "", "path of the generated Go file")
	f.String("package", "", "package name of the generated Go file")
}

func printSummary(w io.Writer, res *pipeline.Result, color bool) {
	art := res.Artifact
	status := "up to date"
	if res.Written {
		status = "written"
	}

	lines := []string{
		row(color, "backends", art.Backends().String()),
		row(color, "profile", string(art.Profile())),
		row(color, "libraries", art.LibDir()),
		row(color, "link", strings.Join(art.LinkDirectives(), " ")),
		row(color, "header", res.Expanded),
		row(color, "bindings", res.Bindings+" ("+status+")"),
	}
	if res.Took > 0 {
		lines = append(lines, row(color, "took", res.Took.Round(time.Millisecond).String()))
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func row(color bool, key, value string) string {
	k := fmt.Sprintf("%-10s", key)
	if color {
		k = keyStyle.Render(k)
	}
	return k + " " + value
}

