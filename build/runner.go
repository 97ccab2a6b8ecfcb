package build

import (
	"bytes"
	"context"
	"strings"

	"github.com/magefile/mage/sh"

	"github.com/wippyai/ukv-go/errors"
)

// Command is one invocation of a native tool.
type Command struct {
	Env  map[string]string
	Step string
	Name string
	Args []string
}

// String renders the command line.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes native tool commands and returns their combined
// stdout and stderr.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ShellRunner runs commands through mage's sh package.
// Output is captured, never streamed, so it can be attached to errors.
//
// sh.Exec passes the command name and every argument through os.Expand,
// so a literal "$" would silently become an environment lookup. Commands
// containing one are rejected with a build failure instead.
type ShellRunner struct{}

// Run executes cmd. The context is only checked before the process starts.
func (ShellRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkExpansion(cmd); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	// sh.Exec rewrites args in place.
	args := append([]string(nil), cmd.Args...)
	_, err := sh.Exec(cmd.Env, &out, &out, cmd.Name, args...)
	return out.Bytes(), err
}

func checkExpansion(cmd Command) error {
	for _, v := range append([]string{cmd.Name}, cmd.Args...) {
		if strings.Contains(v, "$") {
			return errors.New(errors.PhaseBuild, errors.KindBuildFailure).
				Step(cmd.Step).
				Detail("argument %q contains $, which would be expanded as an environment variable", v).
				Build()
		}
	}
	return nil
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) ([]byte, error)

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd Command) ([]byte, error) {
	return f(ctx, cmd)
}
