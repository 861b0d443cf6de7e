package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type LoginOptions struct {
	GlobalOptions

	ServerURL string
	WalletKey string
	Timeout   time.Duration
}

func DefaultLoginOptions() *LoginOptions {
	return &LoginOptions{
		GlobalOptions: DefaultGlobalOptions(),
		ServerURL:     "http://localhost:3443",
		Timeout:       30 * time.Second,
	}
}

func NewCmdLogin() *cobra.Command {
	o := DefaultLoginOptions()
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a login challenge with a wallet key and store the session.",
		Args:  cobra.NoArgs,
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

func (o *LoginOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.ServerURL, "server-url", "u", o.ServerURL, "Address of the server")
	fs.StringVar(&o.WalletKey, "wallet-key", o.WalletKey, fmt.Sprintf("Hex private key of the wallet. Defaults to $%s.", walletKeyEnv))
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Timeout of the login exchange")
}

func (o *LoginOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.WalletKey = walletKeyFromEnv(o.WalletKey)
	return nil
}

func (o *LoginOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.ServerURL == "" {
		return fmt.Errorf("--server-url is required")
	}
	if o.WalletKey == "" {
		return fmt.Errorf("a wallet key is required: pass --wallet-key or set %s", walletKeyEnv)
	}
	return nil
}

func (o *LoginOptions) Run(ctx context.Context, args []string) error {
	key, err := auth.LoadPrivateKey(o.WalletKey)
	if err != nil {
		return err
	}
	address := auth.AddressOf(key)

	c := client.NewRealiaClient(o.ServerURL, "", &http.Client{Timeout: o.Timeout})

	nonce, err := c.Nonce(ctx, address)
	if err != nil {
		return fmt.Errorf("requesting nonce: %w", err)
	}

	signature, err := auth.SignMessage(key, nonce)
	if err != nil {
		return fmt.Errorf("signing nonce: %w", err)
	}

	resp, err := c.Connect(ctx, api.ConnectRequest{Address: address, Message: nonce, Signature: signature})
	if err != nil {
		return fmt.Errorf("connecting wallet: %w", err)
	}

	if err := client.WriteConfig(o.ConfigFilePath, o.ServerURL, resp.Token); err != nil {
		return err
	}

	fmt.Fprintf(o.out, "Logged in as %s, session expires %s\n", resp.Address, resp.Expires.Local().Format(time.RFC1123))
	return nil
}
