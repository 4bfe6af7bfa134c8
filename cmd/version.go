// File: cmd/version.go
package cmd

import "github.com/spf13/cobra"

// Version is the application version.
// Set at build time: go build -ldflags "-X github.com/xkilldash9x/calm-cli/cmd.Version=1.0.0"
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the calm version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("calm version %s\n", Version)
		},
	}
}
