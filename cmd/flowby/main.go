// Command flowby is the Flowby script toolchain: run, check, fmt and a token
// dump for debugging the lexer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowby-lang/flowby/diag"
	"github.com/flowby-lang/flowby/lexer"
	"github.com/flowby-lang/flowby/printer"
	"github.com/flowby-lang/flowby/runner"
)

var errDiagnostics = errors.New("diagnostics reported")

func main() {
	rootCmd := &cobra.Command{
		Use:           "flowby",
		Short:         "Run and check Flowby automation scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(runCmd(), checkCmd(), fmtCmd(), tokensCmd())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		watch   bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "run <script.flow>",
		Short: "Execute a script (dry-run against a recording executor)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			r := runner.New()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				err := r.Watch(ctx, path, func(diags []diag.Diagnostic) {
					report(diags, jsonOut)
					if len(diags) == 0 {
						fmt.Fprintln(os.Stderr, "ok")
					}
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			diags := r.RunFile(ctx, path)
			report(diags, jsonOut)
			if len(diags) > 0 {
				return errDiagnostics
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run on source changes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit diagnostics as JSON")
	return cmd
}

func checkCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "check <script.flow>",
		Short: "Lex, parse and resolve without executing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, diags := runner.New().CheckFile(args[0])
			report(diags, jsonOut)
			if len(diags) > 0 {
				return errDiagnostics
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit diagnostics as JSON")
	return cmd
}

func fmtCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <script.flow>",
		Short: "Print a script in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			prog, diags := runner.New().CheckFile(path)
			if len(diags) > 0 {
				report(diags, false)
				return errDiagnostics
			}
			out := printer.Print(prog)
			if write {
				return os.WriteFile(path, []byte(out), 0o644)
			}
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the file in place")
	return cmd
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <script.flow>",
		Short: "Dump the token stream (lexer debugging)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			toks, lexErrs := lexer.Tokenize(string(src))
			for _, tok := range toks {
				fmt.Println(tok.String())
			}
			for _, e := range lexErrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			if len(lexErrs) > 0 {
				return errDiagnostics
			}
			return nil
		},
	}
}

func report(diags []diag.Diagnostic, jsonOut bool) {
	if len(diags) == 0 {
		return
	}
	if jsonOut {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(diags)
		return
	}
	fmt.Fprintln(os.Stderr, diag.Format(diags))
}
