// Command caxtond wires together the runtime's core components and
// serves them until terminated. Only two subcommands are exposed —
// run and version — mirroring the teacher's cmd/nova entrypoint
// structure (cobra root command, persistent --config flag) but
// deliberately trimmed: the full admin/CLI surface the teacher exposes
// (register, list, invoke, secrets, apikeys, ...) has no equivalent in
// this runtime's scope.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// version is set at release time via -ldflags; left at "dev" for local
// builds, matching the teacher's own version-stamping convention.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "caxtond",
		Short: "caxtond runs the agent orchestration runtime",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a JSON or YAML config file (overrides the development preset)")

	root.AddCommand(runCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the runtime version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}
