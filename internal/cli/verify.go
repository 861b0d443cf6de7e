package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type VerifyOptions struct {
	GlobalOptions
	WatchFlags

	Watch  bool
	Output string
}

func DefaultVerifyOptions() *VerifyOptions {
	return &VerifyOptions{
		GlobalOptions: DefaultGlobalOptions(),
		WatchFlags:    DefaultWatchFlags(),
	}
}

func NewCmdVerify() *cobra.Command {
	o := DefaultVerifyOptions()
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Ask the verifier agents whether an image matches a minted token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *VerifyOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.WatchFlags.Bind(fs)

	fs.BoolVarP(&o.Watch, "watch", "w", o.Watch, "Wait for the agents' verdict")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format of the request. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *VerifyOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Watch {
		if err := o.WatchFlags.Validate(); err != nil {
			return err
		}
	}
	return validateOutput(o.Output)
}

func (o *VerifyOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return err
	}

	image, err := readImage(args[0])
	if err != nil {
		return err
	}

	resp, err := c.Verify(ctx, image)
	if err != nil {
		return fmt.Errorf("requesting verification: %w", err)
	}

	if ok, err := printStructured(o.out, resp, o.Output); ok {
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintf(o.out, "Verification requested: %s (tx %s)\n", resp.VerificationID, orDash(resp.TxHash))
	}

	if !o.Watch {
		return nil
	}
	return watchVerification(ctx, o.out, c, resp.VerificationID, o.WatchFlags)
}
