// Command valuescript is the CLI over the compiler/VM pipeline:
// compile and run ValueScript source, emit or disassemble bytecode,
// assemble textual IR, or evaluate lines interactively.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"valuescript/pkg/asm"
	"valuescript/pkg/builtins"
	"valuescript/pkg/bytecode"
	"valuescript/pkg/driver"
	"valuescript/pkg/errors"
	"valuescript/pkg/modules"
	"valuescript/pkg/values"
	"valuescript/pkg/vmlog"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "valuescript",
		Short:         "ValueScript compiler and virtual machine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			vmlog.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(runCmd(), buildCmd(), asmCmd(), disasmCmd(), irCmd(), replCmd())
	return root
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file> [args...]",
		Short: "Compile a module and call its default export",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			resolver := modules.NewResolver()
			m, err := resolver.LoadFile(cliArgs[0])
			if err != nil {
				return err
			}
			args := make([]values.Value, 0, len(cliArgs)-1)
			for _, a := range cliArgs[1:] {
				args = append(args, values.String(a))
			}
			result, err := m.RunDefault(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			return nil
		},
	}
}

func buildCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a module to bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := driver.CompileSource(args[0], string(src))
			if err != nil {
				return err
			}
			printDiagnostics(cmd, result.Diagnostics)
			if result.HasErrors() {
				return fmt.Errorf("%s: compilation failed", args[0])
			}
			if out == "" {
				out = replaceExt(args[0], ".vsb")
			}
			return os.WriteFile(out, result.Bytecode, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: input with .vsb)")
	return cmd
}

func asmCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "asm <file.vsm>",
		Short: "Assemble textual IR to bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			module, err := asm.Parse(string(text))
			if err != nil {
				return err
			}
			buf, err := bytecode.Assemble(module, builtins.Code)
			if err != nil {
				return err
			}
			if out == "" {
				out = replaceExt(args[0], ".vsb")
			}
			return os.WriteFile(out, buf, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: input with .vsb)")
	return cmd
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.vsb>",
		Short: "Print the textual IR reconstructed from bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			module, err := bytecode.Disassemble(buf, builtins.Name)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), asm.Print(module))
			return nil
		},
	}
}

func irCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ir <file>",
		Short: "Print the Assembly IR compiled from source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := driver.CompileSource(args[0], string(src))
			if err != nil {
				return err
			}
			printDiagnostics(cmd, result.Diagnostics)
			fmt.Fprint(cmd.OutOrStdout(), asm.Print(result.Module))
			return nil
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || line == "exit" {
					if line == "exit" {
						return nil
					}
					fmt.Fprint(out, "> ")
					continue
				}
				evalLine(cmd, line)
				fmt.Fprint(out, "> ")
			}
			return scanner.Err()
		},
	}
}

// evalLine wraps one REPL line in a default-exported function so the
// whole pipeline (including the scope analyzer) sees an ordinary
// module: first as a returned expression, then — if that fails to
// parse — as a statement body.
func evalLine(cmd *cobra.Command, line string) {
	v, err := driver.RunSource("<repl>", "export default function(){ return ("+line+"); }", nil, nil)
	if err != nil {
		v, err = driver.RunSource("<repl>", "export default function(){ "+line+" }", nil, nil)
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.String())
}

func printDiagnostics(cmd *cobra.Command, diagnostics []*errors.Diagnostic) {
	for _, d := range diagnostics {
		fmt.Fprintln(cmd.ErrOrStderr(), d.Error())
	}
}

func replaceExt(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i] + ext
	}
	return path + ext
}
