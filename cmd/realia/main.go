package main

import (
	"os"

	"github.com/realia-labs/realia/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewRealiaCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRealiaCtlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realia [flags] [options]",
		Short: "realia mints and verifies image authenticity tokens.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdLogin())
	cmd.AddCommand(cli.NewCmdMint())
	cmd.AddCommand(cli.NewCmdVerify())
	cmd.AddCommand(cli.NewCmdWatch())
	cmd.AddCommand(cli.NewCmdGet())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
