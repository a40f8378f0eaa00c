package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List the requests defined in files",
	Long: `List the requests defined in .http, .rede or .toml files. The names
shown are the ones accepted by "rede run --name".

Examples:
  rede list api.http
  rede list ./requests/`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return &usageError{err: fmt.Errorf("no .http, .rede or .toml files found")}
	}

	out := cmd.OutOrStdout()
	for _, file := range files {
		f, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(out, "%s:\n", file)
		for _, req := range f.Requests {
			fmt.Fprintf(out, "  - %s\n", describeRequest(req))
		}
	}

	return nil
}

func describeRequest(req *parser.Request) string {
	target := fmt.Sprintf("%s %s", req.Method, req.URL)
	if req.Name == "" {
		return target
	}
	return fmt.Sprintf("%s (%s)", req.Name, target)
}
