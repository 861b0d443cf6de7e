package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/events"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type MintOptions struct {
	GlobalOptions

	Name        string
	Description string
	WalletKey   string
	Output      string
}

func DefaultMintOptions() *MintOptions {
	return &MintOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdMint() *cobra.Command {
	o := DefaultMintOptions()
	cmd := &cobra.Command{
		Use:   "mint FILE",
		Short: "Mint an authenticity token for an image and follow its progress.",
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

func (o *MintOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Name, "name", o.Name, "Name of the token")
	fs.StringVar(&o.Description, "description", o.Description, "Description of the token")
	fs.StringVar(&o.WalletKey, "wallet-key", o.WalletKey, fmt.Sprintf("Sign the mint request with this wallet key. Defaults to $%s.", walletKeyEnv))
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format of the result. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *MintOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.WalletKey = walletKeyFromEnv(o.WalletKey)
	return nil
}

func (o *MintOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Name == "" || o.Description == "" {
		return fmt.Errorf("--name and --description are required")
	}
	return validateOutput(o.Output)
}

func (o *MintOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return err
	}

	image, err := readImage(args[0])
	if err != nil {
		return err
	}

	data := api.MintData{Name: o.Name, Description: o.Description}
	if o.WalletKey != "" {
		key, err := auth.LoadPrivateKey(o.WalletKey)
		if err != nil {
			return err
		}
		data.Message = fmt.Sprintf("mint %s", o.Name)
		if data.Signature, err = auth.SignMessage(key, data.Message); err != nil {
			return fmt.Errorf("signing mint request: %w", err)
		}
	}

	stream, err := c.Mint(ctx, image, data)
	if err != nil {
		return fmt.Errorf("minting: %w", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	return o.follow(events.NewReader(stream))
}

// follow prints progress events until the terminal one.
func (o *MintOptions) follow(reader *events.Reader) error {
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch event.Kind {
		case api.EventProgress:
			var p api.Progress
			if err := event.Decode(&p); err != nil {
				return err
			}
			if o.Output == "" {
				fmt.Fprintf(o.out, "[%s] %s\n", p.Stage, p.Message)
			}
		case api.EventComplete:
			var result api.MintResult
			if err := event.Decode(&result); err != nil {
				return err
			}
			if ok, err := printStructured(o.out, result, o.Output); ok {
				return err
			}
			fmt.Fprintf(o.out, "Minted token %s\n  tx:       %s\n  token uri: %s\n  image:    %s\n",
				result.TokenID, orDash(result.TxHash), result.TokenURI, orDash(result.ImageURL))
		case api.EventError:
			var apiErr api.Error
			if err := event.Decode(&apiErr); err != nil {
				return err
			}
			if apiErr.Stage != "" {
				return fmt.Errorf("mint failed at %s: %s", apiErr.Stage, apiErr.Error)
			}
			return fmt.Errorf("mint failed: %s", apiErr.Error)
		}
	}
}
