package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wayfinder-dev/wayfinder/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦ ╦┌─┐┬ ┬┌─┐┬┌┐┌┌┬┐┌─┐┬─┐
  ║║║├─┤└┬┘├┤ ││││││ ││├┤ ├┬┘
  ╚╩╝┴ ┴ ┴ ┴  ┴┘└┘─┴┘└─┘┴└─
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "wayfinder",
		Short: "Declarative route resolution for live applications",
		Long: `Wayfinder resolves locations against a declarative route tree.

Routes are path templates with redirect rules. A resolution pass
follows redirects until the location is stable, guarding against
loops and runaway chains. Features include:

  • Route manifests in JSON, publishable without a rebuild
  • Loop and limit guards with full redirect traces
  • A live WebSocket server that pushes re-resolutions
  • Prometheus metrics and OpenTelemetry traces per pass`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		initCmd(),
		routesCmd(),
		resolveCmd(),
		checkCmd(),
		serveCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func printBanner() { fmt.Print(banner) }

// say prints a message with a colored status glyph.
func say(w *os.File, glyph, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", glyph, fmt.Sprintf(format, args...))
}

func success(format string, args ...any) { say(os.Stdout, "\033[32m✓\033[0m", format, args...) }
func warn(format string, args ...any)    { say(os.Stdout, "\033[33m⚠\033[0m", format, args...) }
func errorMsg(format string, args ...any) {
	say(os.Stderr, "\033[31m✗\033[0m", format, args...)
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
