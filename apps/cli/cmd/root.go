package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/output"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rede",
	Short: "Send HTTP requests described in plain text files.",
	Long: `rede reads a request definition from a .http or .toml file, sends it,
and prints the response as JSON. Failures are reported as a single line
on stderr with an exit code that tells what went wrong.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI and exits the process with a code derived from the
// returned error.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var reported *exitError
	if !errors.As(err, &reported) {
		output.NewConsoleFormatter(
			output.WithWriter(rootCmd.ErrOrStderr()),
			output.WithNoColor(noColorFlag),
		).FormatError(err)
	}
	return ExitCodeFor(err)
}

func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("REDE_NO_COLOR", false), "Disable colored output (env: REDE_NO_COLOR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}
