// Command stepc is the compiler's command-line front end (spec §6):
// `stepc com [-r] [-o outdir] <inputs...>` compiles each input file to
// `<outdir>/<basename>.asm`, assembles and links it with nasm/ld, and
// optionally runs the resulting binary and streams its stdout through.
// Grounded on ajroetker-goat/main.go's cobra wiring style (a package-level
// command built with a literal `&cobra.Command{}`, flags bound in init(),
// `command.Execute()` in main()), adapted from its single flat command to
// a root command plus the `com` subcommand spec §6 names. Errors and
// usage output are silenced on the commands themselves and the located
// diagnostic is printed by hand in main(), matching ajroetker-goat's own
// reason for preferring manual `fmt.Fprintln(os.Stderr, err)` over
// cobra's default error path: a compiler error (spec §7's
// `<file>:<row>:<col>` diagnostic) must reach stderr on its own, not
// prefixed with "Error: " or followed by a usage/flags dump.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aveline/stepc/internal/codegen"
	"github.com/aveline/stepc/internal/ir"
	"github.com/aveline/stepc/internal/parser"
	"github.com/aveline/stepc/internal/typecheck"
)

var rootCmd = &cobra.Command{
	Use:           "stepc",
	Short:         "an ahead-of-time compiler targeting x86-64 Linux NASM assembly",
	SilenceErrors: true,
}

var comCmd = &cobra.Command{
	Use:          "com <input>...",
	Short:        "compile one or more source files to NASM assembly, then assemble and link",
	Args:         cobra.MinimumNArgs(1),
	RunE:         runCom,
	SilenceUsage: true,
}

var (
	flagRun     bool
	flagOutdir  string
	flagVerbose bool
)

func init() {
	comCmd.Flags().BoolVarP(&flagRun, "run", "r", false, "run each resulting binary and stream its stdout")
	comCmd.Flags().StringVarP(&flagOutdir, "outdir", "o", "./out", "directory to write generated artifacts to")
	comCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print one line per compiled file to stderr")
	rootCmd.AddCommand(comCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCom implements spec §6's `com` command: each input is read fully
// into memory (fileinput-style, per SPEC_FULL's supplemented-features
// section), run through the full lexer→parser→typecheck→ir→codegen
// pipeline, written to `<outdir>/<basename>.asm`, then assembled with
// `nasm -felf64 -gdwarf` and linked with `ld`. The first fatal compiler
// error aborts the whole invocation with a nonzero exit, matching spec
// §7's "any error is fatal" error strategy.
func runCom(cmd *cobra.Command, inputs []string) error {
	if err := os.MkdirAll(flagOutdir, 0o755); err != nil {
		return fmt.Errorf("stepc: creating output directory %q: %w", flagOutdir, err)
	}

	for _, input := range inputs {
		binary, err := compileOne(input)
		if err != nil {
			return err
		}
		if flagRun {
			if err := runBinary(binary); err != nil {
				return err
			}
		}
	}
	return nil
}

func compileOne(input string) (string, error) {
	src, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("stepc: reading %q: %w", input, err)
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	asmPath := filepath.Join(flagOutdir, base+".asm")
	objPath := filepath.Join(flagOutdir, base+".o")
	binPath := filepath.Join(flagOutdir, base)

	p, err := parser.New(input, string(src))
	if err != nil {
		return "", err
	}
	program, err := p.Parse()
	if err != nil {
		return "", err
	}
	if err := typecheck.Check(input, program); err != nil {
		return "", err
	}
	prog, err := ir.Build(input, program)
	if err != nil {
		return "", err
	}
	asm, err := codegen.Generate(prog)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		return "", fmt.Errorf("stepc: writing %q: %w", asmPath, err)
	}

	if flagVerbose {
		fmt.Fprintf(os.Stderr, "compiled %s -> %s\n", input, asmPath)
	}

	if err := runTool("nasm", "-felf64", "-gdwarf", asmPath, "-o", objPath); err != nil {
		return "", err
	}
	if err := runTool("ld", "-o", binPath, objPath); err != nil {
		return "", err
	}
	return binPath, nil
}

func runTool(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("stepc: %s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func runBinary(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("stepc: resolving %q: %w", path, err)
	}
	cmd := exec.Command(abs)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("stepc: running %q: %w", abs, err)
	}
	return nil
}
