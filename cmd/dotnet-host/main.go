package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/dotnet-host/config"
	"github.com/wippyai/dotnet-host/handle"
	"github.com/wippyai/dotnet-host/host"
	"github.com/wippyai/dotnet-host/loader"
	"github.com/wippyai/dotnet-host/xmlserial"
)

var (
	// Global flags
	configFile string
	verbose    bool

	// boot flags
	moduleFile  string
	baseDir     string
	callName    string
	interactive bool

	logger = zap.NewNop()
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
)

var rootCmd = &cobra.Command{
	Use:          "dotnet-host",
	Short:        "Host a .NET runtime compiled to WebAssembly",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Interactive mode owns the terminal.
		if interactive {
			return nil
		}
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		setPackageLoggers(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// setPackageLoggers points every library package at l.
func setPackageLoggers(l *zap.Logger) {
	host.SetLogger(l)
	loader.SetLogger(l)
	handle.SetLogger(l)
	xmlserial.SetLogger(l)
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Fetch the configured assets and boot the runtime module",
	Long: `Loads the host configuration, fetches every asset it lists, mounts them
in the guest filesystem and instantiates the runtime module.

Example:
  dotnet-host boot --config publish/app.json --module publish/dotnet.wasm`,
	RunE: runBoot,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a host configuration and print the resolved settings",
	RunE:  runValidate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the host configuration (.json, .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("config")

	bootCmd.Flags().StringVarP(&moduleFile, "module", "m", "", "Path to the runtime wasm module")
	bootCmd.Flags().StringVar(&baseDir, "base", "", "Application directory (default: directory of --config)")
	bootCmd.Flags().StringVar(&callName, "call", "", "Nullary export to call after boot")
	bootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive mode with TUI")
	_ = bootCmd.MarkFlagRequired("module")

	rootCmd.AddCommand(bootCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Assembly root: %s\n", cfg.AssemblyRoot())
	fmt.Fprintf(out, "Globalization: %s (resolved %s)\n", cfg.GlobalizationMode(), cfg.ResolvedGlobalization())
	fmt.Fprintf(out, "Debug level: %d\n", cfg.DebugLevel())
	for _, a := range cfg.Assets() {
		o := a.Options()
		flags := ""
		if o.Optional {
			flags += " optional"
		}
		if o.LoadRemote {
			flags += " remote"
		}
		fmt.Fprintf(out, "  %-9s %s%s\n", a.Behavior(), loader.LocalPath(cfg, a), flags)
	}
	if args := cfg.Args(); len(args) > 0 {
		fmt.Fprintf(out, "Arguments: %s\n", strings.Join(args, " "))
	}
	return nil
}

func runBoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if cfg.DiagnosticTracing() && !verbose && !interactive {
		if logger, err = newLogger(true); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		setPackageLoggers(logger)
	}

	module, err := os.ReadFile(moduleFile)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	dir := baseDir
	if dir == "" {
		dir = filepath.Dir(configFile)
	}

	if interactive {
		return runInteractive(ctx, cfg, module, dir)
	}

	rt, err := host.Boot(ctx, cfg, module,
		host.WithBaseDir(dir),
		host.WithLogger(logger),
		host.WithStdout(os.Stdout),
		host.WithStderr(os.Stderr))
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	printSummary(rt)

	if callName == "" {
		return nil
	}
	fn := rt.Module().ExportedFunction(callName)
	if fn == nil {
		return fmt.Errorf("export %q not found", callName)
	}
	if n := len(fn.Definition().ParamTypes()); n != 0 {
		return fmt.Errorf("export %q takes %d parameters, use --interactive to pass them", callName, n)
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return fmt.Errorf("call %s: %w", callName, err)
	}
	fmt.Printf("Result: %v\n", results)
	return nil
}

func printSummary(rt *host.Runtime) {
	styled := term.IsTerminal(int(os.Stdout.Fd()))
	render := func(s lipgloss.Style, v string) string {
		if styled {
			return s.Render(v)
		}
		return v
	}

	cfg := rt.Config()
	fmt.Println(render(headerStyle, "Runtime booted"))
	fmt.Printf("Globalization: %s\n", cfg.ResolvedGlobalization())
	if cfg.DebuggingEnabled() {
		fmt.Printf("Debug level: %d\n", cfg.DebugLevel())
	}
	if args := cfg.Args(); len(args) > 0 {
		fmt.Printf("Arguments: %s\n", strings.Join(args, " "))
	}

	fmt.Printf("\n%s\n", render(headerStyle, "Loaded files:"))
	for _, f := range rt.LoadedFiles() {
		fmt.Printf("  %s\n", render(pathStyle, f))
	}
	for _, b := range rt.Heap() {
		fmt.Printf("  %s at %#x (%d bytes)\n", render(pathStyle, b.Name), uint32(b.Ptr), b.Size)
	}
	for _, s := range rt.SkippedAssets() {
		fmt.Printf("  %s\n", render(warnStyle, s+" (skipped)"))
	}
}
