package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/realia-labs/realia/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const walletKeyEnv = "REALIA_WALLET_KEY"

type GlobalOptions struct {
	ConfigFilePath string

	out io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultRealiaClientConfigPath(),
		out:            os.Stdout,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file.")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.ConfigFilePath == "" {
		return fmt.Errorf("config file path must not be empty")
	}
	return nil
}

// Client reads the config written by `realia login`.
func (o *GlobalOptions) Client() (*client.RealiaClient, error) {
	c, err := client.NewFromConfigFile(o.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("creating client (did you run `realia login`?): %w", err)
	}
	return c, nil
}

func walletKeyFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(walletKeyEnv)
}
