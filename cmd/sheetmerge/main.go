// Command sheetmerge runs or validates one pivot/report merge event locally or
// from a job runner, against any configured object store.
//
//	sheetmerge run --event event.json [--config runtime.yaml] [-v]
//	sheetmerge validate --event event.json [--config runtime.yaml]
//	sheetmerge probe --side pivot (FILE | --bucket B --key K)
//
// run prints the Response JSON on stdout. Exit codes: 0 success, 1 merge
// failure (or invalid event for validate), 2 usage or configuration error.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sheetmerge/internal/app"
	"sheetmerge/internal/config"
	"sheetmerge/internal/logging"
	"sheetmerge/internal/probe"
	"sheetmerge/internal/sheet"

	// register all backends with the store factory; settings pick one at runtime.
	_ "sheetmerge/internal/objectstore/all"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// deps are the process seams swapped by tests.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer
}

// exitError carries an exit code out of a cobra RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, a ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, a...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], deps{Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// run executes the CLI and returns an exit code.
func run(ctx context.Context, args []string, d deps) int {
	root := newRootCmd(d)
	root.SetArgs(args)
	root.SetOut(d.Stdout)
	root.SetErr(d.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(d.Stderr, "sheetmerge: %v\n", ee.err)
		}
		return ee.code
	}
	// Flag parsing and unknown commands.
	fmt.Fprintf(d.Stderr, "sheetmerge: %v\n", err)
	return exitUsage
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd(d deps) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "sheetmerge",
		Short:         "Merge a pivot and a report spreadsheet on UID and upload the CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "runtime settings YAML (store, metrics, log, layouts); SHEETMERGE__* env overrides")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(g, d), newValidateCmd(g, d), newProbeCmd(g, d))
	return root
}

func loadSettings(g *globalFlags) (config.Settings, error) {
	s, err := config.LoadSettings(g.configPath)
	if err != nil {
		return config.Settings{}, usageErr("%v", err)
	}
	if g.verbose {
		s.Log.Level = "debug"
	}
	return s, nil
}

func loadEvent(path string) (config.Event, error) {
	if path == "" {
		return config.Event{}, usageErr("--event is required")
	}
	ev, err := config.LoadEvent(path)
	if err != nil {
		return config.Event{}, usageErr("%v", err)
	}
	return ev, nil
}

// printIssues writes issues as "severity: path: message" and reports whether any is an error.
func printIssues(w io.Writer, prefix string, issues []config.Issue) bool {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s%s: %s\n", iss.Severity, prefix, iss.Path, iss.Message)
	}
	return config.HasErrors(issues)
}

func newRunCmd(g *globalFlags, d deps) *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one merge event and print the response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(g)
			if err != nil {
				return err
			}
			ev, err := loadEvent(eventPath)
			if err != nil {
				return err
			}
			if printIssues(d.Stderr, "event.", config.ValidateEvent(ev)) {
				return &exitError{code: exitUsage}
			}

			log, err := logging.New(s.Log)
			if err != nil {
				return usageErr("logger: %v", err)
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			rt, err := app.New(ctx, s, log)
			if err != nil {
				return usageErr("%v", err)
			}
			defer func() {
				if err := rt.Close(); err != nil {
					log.Warn("shutdown", zap.Error(err))
				}
			}()

			resp := rt.Handler.Handle(ctx, ev)

			enc := json.NewEncoder(d.Stdout)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(resp); err != nil {
				return &exitError{code: exitFailed, err: fmt.Errorf("write response: %w", err)}
			}
			if resp.StatusCode != 200 {
				return &exitError{code: exitFailed}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "", "event file (JSON or YAML)")
	return cmd
}

func newValidateCmd(g *globalFlags, d deps) *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an event and the runtime settings, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(g)
			if err != nil {
				return err
			}
			ev, err := loadEvent(eventPath)
			if err != nil {
				return err
			}

			bad := printIssues(d.Stderr, "settings.", config.ValidateSettings(s))
			if printIssues(d.Stderr, "event.", config.ValidateEvent(ev)) {
				bad = true
			}
			if bad {
				fmt.Fprintf(d.Stderr, "configuration is invalid: %s\n", eventPath)
				return &exitError{code: exitFailed}
			}
			fmt.Fprintf(d.Stdout, "configuration is valid: %s -> %s/%s\n", eventPath, ev.OutputBucket, ev.DestinationKey())
			return nil
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "", "event file (JSON or YAML)")
	return cmd
}

func newProbeCmd(g *globalFlags, d deps) *cobra.Command {
	var side, bucket, key string
	cmd := &cobra.Command{
		Use:   "probe [FILE]",
		Short: "Show how a pivot or report workbook would be read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(g)
			if err != nil {
				return err
			}
			var candidates []sheet.Layout
			switch side {
			case "pivot":
				candidates = s.Layouts.Pivot
			case "report":
				candidates = s.Layouts.Report
			default:
				return usageErr("--side must be pivot or report, got %q", side)
			}

			var data []byte
			switch {
			case len(args) == 1 && bucket == "" && key == "":
				if data, err = os.ReadFile(args[0]); err != nil {
					return usageErr("%v", err)
				}
			case len(args) == 0 && bucket != "" && key != "":
				rt, err := app.New(cmd.Context(), s, nil)
				if err != nil {
					return usageErr("%v", err)
				}
				data, err = rt.Store.Get(cmd.Context(), bucket, key)
				_ = rt.Close()
				if err != nil {
					return &exitError{code: exitFailed, err: fmt.Errorf("fetch %s: %w", side, err)}
				}
			default:
				return usageErr("give either FILE or both --bucket and --key")
			}

			wb, err := sheet.Open(data)
			if err != nil {
				return &exitError{code: exitFailed, err: fmt.Errorf("open %s workbook: %w", side, err)}
			}
			defer wb.Close()

			r := probe.Inspect(wb, side, candidates)
			fmt.Fprintln(d.Stdout, r.Format())
			if r.Err != nil || !r.KeyFound || len(r.DuplicateKeys) > 0 {
				return &exitError{code: exitFailed}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "side", "pivot", "which input the workbook is: pivot or report")
	cmd.Flags().StringVar(&bucket, "bucket", "", "read the workbook from this bucket of the configured store")
	cmd.Flags().StringVar(&key, "key", "", "object key within --bucket")
	return cmd
}
