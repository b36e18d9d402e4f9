package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"codeatlas/internal/config"
	"codeatlas/internal/journal"
	"codeatlas/internal/logging"
	"codeatlas/internal/registry"
	"codeatlas/internal/reload"
	"codeatlas/internal/resource"
	"codeatlas/internal/source"
	"codeatlas/internal/subres"
	"codeatlas/internal/syntax"
	"codeatlas/internal/vcs"
)

var (
	// Global flags
	verbose   bool
	workspace string
	toolTree  string

	app *atlasApp
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "codeatlas - semantic navigation and surgery over a live source tree",
	Long: `codeatlas exposes a workspace as addressable resourcespaces: the source
tree by dotted semantic address (pkg.module.Symbol), plus deps, config,
tests and self subresources. Edits are syntax-tree splices committed only
if the module reloads; a failed reload rolls the file back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(workspace)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		app, err = buildApp(workspace, toolTree, cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(app.registry.Home(cmd.Context()))
	},
}

var orientCmd = &cobra.Command{
	Use:   "orient",
	Short: "Show the registered resourcespaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(app.registry.Home(cmd.Context()))
	},
}

var navCmd = &cobra.Command{
	Use:   "nav [address]",
	Short: "Navigate to a dotted address and show its entry display",
	Long: `Navigates the shared stack to the addressed resource. Navigating to a
sibling replaces the stack tail; the published tool set always matches the
current resource exactly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(app.registry.Navigate(cmd.Context(), args[0]))
	},
}

var readCmd = &cobra.Command{
	Use:   "read [address]",
	Short: "Read a package, module or symbol; no address for the tree overview",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		return printResult(app.source.Read(cmd.Context(), target))
	},
}

var writeCmd = &cobra.Command{
	Use:   "write [address] [file]",
	Short: "Create a new module from a source file (or - for stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readInput(args[1])
		if err != nil {
			return err
		}
		return printResult(app.source.Write(cmd.Context(), args[0], content))
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [address] [file]",
	Short: "Replace a symbol or module with source from a file (or - for stdin)",
	Long: `Replaces the addressed symbol with new source. The fragment is validated
standalone, re-indented to the target's position, spliced by exact line
range, validated as a whole file, written, and reloaded. A reload failure
restores the previous content.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readInput(args[1])
		if err != nil {
			return err
		}
		return printResult(app.source.Edit(cmd.Context(), args[0], content))
	},
}

var globCmd = &cobra.Command{
	Use:   "glob [pattern]",
	Short: "Match dotted module names against a pattern like pkg.*",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(app.source.Glob(cmd.Context(), args[0]))
	},
}

var grepCmd = &cobra.Command{
	Use:   "grep [pattern] [scope]",
	Short: "Regex-search module contents, reporting address:line: content",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := ""
		if len(args) == 2 {
			scope = args[1]
		}
		return printResult(app.source.Grep(cmd.Context(), args[0], scope))
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert all uncommitted changes to the last checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(app.source.Undo(cmd.Context()))
	},
}

var callCmd = &cobra.Command{
	Use:   "call [address] [tool] [key=value...]",
	Short: "Navigate to an address and invoke one of its published tools",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.registry.Navigate(cmd.Context(), args[0]); err != nil {
			return err
		}
		toolArgs := make(map[string]any)
		for _, kv := range args[2:] {
			key, val, ok := splitArg(kv)
			if !ok {
				return resource.Validationf("tool arguments take the form key=value, got %q", kv)
			}
			toolArgs[key] = val
		}
		return printResult(app.registry.Invoke(cmd.Context(), args[1], toolArgs))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent edit journal entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.journal == nil {
			return fmt.Errorf("journaling is disabled in this workspace")
		}
		entries, err := app.journal.Recent(cmd.Context(), 20)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No journaled edits yet.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-5s %-11s %s\n", e.At.Format("2006-01-02 15:04:05"), e.Action, e.Outcome, e.Unit)
		}
		return nil
	},
}

// atlasApp holds the wired process state.
type atlasApp struct {
	registry *registry.Registry
	source   *source.Provider
	self     *subres.Self
	journal  *journal.Journal
	undoer   *vcs.Undoer
}

// buildApp wires config → journal → coordinator → provider → subresources →
// registry.
func buildApp(workspace, toolTree string, cfg config.Config) (*atlasApp, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	a := &atlasApp{}

	if cfg.JournalPath != "" {
		jrnl, err := journal.Open(filepath.Join(abs, cfg.JournalPath))
		if err != nil {
			// The journal is an audit aid, not a dependency of correctness.
			logging.JournalWarn("journal unavailable: %v", err)
		} else {
			a.journal = jrnl
		}
	}

	if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
		a.undoer = vcs.NewUndoer(cfg.GitBin, abs, cfg.UndoTimeout)
	}

	ed := syntax.NewEditor()
	pyCoord := reload.NewCoordinator(reload.NewPythonReloader(cfg.PythonBin, abs, cfg.ReloadTimeout), a.journal)
	a.source = source.NewProvider("source", "the workspace source tree", abs, ed, pyCoord, a.undoer)

	deps := subres.NewDeps(abs, cfg.PipBin, cfg.InstallTimeout)
	a.source.Attach(deps)
	a.source.Attach(subres.NewConfigSpace(deps))
	a.source.Attach(subres.NewTests(abs, cfg.PytestBin, cfg.TestTimeout))

	if toolTree != "" {
		selfCoord := reload.NewCoordinator(reload.NewInterpReloader(toolTree, cfg.ReloadTimeout), a.journal)
		a.self = subres.NewSelf(toolTree, selfCoord)
		a.source.Attach(a.self)
	}

	a.registry = registry.New()
	a.registry.Register(a.source)
	logging.Get(logging.CategoryCLI).Debugf("workspace %s wired (journal=%v, undo=%v, self=%v)",
		abs, a.journal != nil, a.undoer != nil, a.self != nil)
	return a, nil
}

func (a *atlasApp) Close() {
	if a.source != nil {
		a.source.Close()
	}
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

// printResult prints out unless the operation failed. Partial output before
// an error (a breadcrumb, say) is still shown.
func printResult(out string, err error) error {
	if out != "" {
		fmt.Println(out)
	}
	return err
}

// readInput loads tool input from a file path, or stdin for "-".
func readInput(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(data), nil
}

// splitArg splits key=value.
func splitArg(kv string) (string, string, bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], i > 0
		}
	}
	return "", "", false
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVar(&toolTree, "tool-tree", "", "hosted Go tool tree for the self subresource")

	rootCmd.AddCommand(orientCmd, navCmd, readCmd, writeCmd, editCmd, globCmd, grepCmd, undoCmd, callCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
