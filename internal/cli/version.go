package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/realia-labs/realia/pkg/version"
	"github.com/spf13/cobra"
)

type VersionOptions struct {
	Output string
}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{
		Output: "",
	}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print Realia version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(o.Output); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd, args)
		},
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
	return cmd
}

func (o *VersionOptions) Run(ctx context.Context, cmd *cobra.Command, args []string) error {
	versionInfo := version.Get()
	if ok, err := printStructured(cmd.OutOrStdout(), versionInfo, o.Output); ok {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Realia Version: %s\n", versionInfo.String())
	return nil
}
