package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/client"
	"github.com/realia-labs/realia/internal/consensus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

// WatchFlags configure the consensus watcher. They are shared by `watch` and `verify --watch`.
type WatchFlags struct {
	Timeout       time.Duration
	Interval      time.Duration
	Majority      bool
	FirstResponse bool
}

func DefaultWatchFlags() WatchFlags {
	return WatchFlags{
		Timeout:  consensus.DefaultTimeout,
		Interval: 2 * time.Second,
	}
}

func (f *WatchFlags) Bind(fs *pflag.FlagSet) {
	fs.DurationVar(&f.Timeout, "timeout", f.Timeout, "Give up waiting after this long")
	fs.DurationVar(&f.Interval, "interval", f.Interval, "Polling interval")
	fs.BoolVar(&f.Majority, "majority", f.Majority, "Require a majority of positive responses instead of any one")
	fs.BoolVar(&f.FirstResponse, "first-response", f.FirstResponse, "Stop at the first batch of responses")
}

func (f *WatchFlags) Validate() error {
	if f.Timeout <= 0 || f.Interval <= 0 {
		return fmt.Errorf("--timeout and --interval must be positive")
	}
	return nil
}

func (f *WatchFlags) options() []consensus.Option {
	opts := []consensus.Option{
		consensus.WithTimeout(f.Timeout),
		consensus.WithInterval(f.Interval),
	}
	if f.Majority {
		opts = append(opts, consensus.WithRule(consensus.Majority))
	}
	if f.FirstResponse {
		opts = append(opts, consensus.StopOnFirstResponse())
	}
	return opts
}

type WatchOptions struct {
	GlobalOptions
	WatchFlags
}

func DefaultWatchOptions() *WatchOptions {
	return &WatchOptions{
		GlobalOptions: DefaultGlobalOptions(),
		WatchFlags:    DefaultWatchFlags(),
	}
}

func NewCmdWatch() *cobra.Command {
	o := DefaultWatchOptions()
	cmd := &cobra.Command{
		Use:   "watch VERIFICATION_ID",
		Short: "Wait for agents to reach a verdict on a verification request.",
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

func (o *WatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.WatchFlags.Bind(fs)
}

func (o *WatchOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.WatchFlags.Validate()
}

func (o *WatchOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return err
	}
	return watchVerification(ctx, o.out, c, args[0], o.WatchFlags)
}

// apiResponses adapts the read api of the server to a consensus source.
func apiResponses(c *client.RealiaClient) consensus.ResponseSource {
	return consensus.SourceFunc(func(ctx context.Context, id string) ([]consensus.Response, error) {
		responses, err := c.VerificationResponses(ctx, id)
		if err != nil {
			return nil, err
		}
		return funk.Map(responses, func(r api.AgentResponse) consensus.Response {
			return consensus.Response{
				Agent:       r.Agent,
				BlockNumber: r.BlockNumber,
				TxHash:      r.TxHash,
				Verified:    r.Verified,
			}
		}).([]consensus.Response), nil
	})
}

func watchVerification(ctx context.Context, out io.Writer, c *client.RealiaClient, id string, flags WatchFlags) error {
	watcher := consensus.NewWatcher(apiResponses(c), flags.options()...)
	defer watcher.Close()

	fmt.Fprintf(out, "Waiting for agent responses to %s (timeout %s)\n", id, flags.Timeout)

	snapshot, err := watcher.Watch(ctx, id).Wait(ctx)
	if err != nil {
		return err
	}

	printResponses(out, snapshot.Responses)

	switch snapshot.State {
	case consensus.StateVerified:
		fmt.Fprintf(out, "Verification %s: verified\n", id)
		return nil
	case consensus.StateTimedOut:
		if snapshot.LastError != nil {
			return fmt.Errorf("verification %s timed out, last error: %w", id, snapshot.LastError)
		}
		return fmt.Errorf("verification %s timed out without responses", id)
	default:
		return fmt.Errorf("verification %s: %s", id, strings.ReplaceAll(string(snapshot.State), "_", " "))
	}
}

func printResponses(out io.Writer, responses []consensus.Response) {
	if len(responses) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "AGENT\tVERIFIED\tBLOCK\tTX")
	for _, r := range responses {
		verdict := "-"
		if r.Verified != nil {
			verdict = fmt.Sprintf("%t", *r.Verified)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Agent, verdict, r.BlockNumber, orDash(r.TxHash))
	}
	w.Flush()
}
