package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

const (
	NftKind          = "nft"
	VerificationKind = "verification"
)

var (
	pluralKinds = map[string]string{
		NftKind:          "nfts",
		VerificationKind: "verifications",
	}
)

type GetOptions struct {
	GlobalOptions

	Output string
	Owner  string
	Limit  int
	Offset int
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Limit:         20,
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get (TYPE | TYPE/ID)",
		Short: "Display one or many resources.",
		Long:  "Display one or many resources. Types: nfts, nft/TOKEN_ID, verification/ID.",
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

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
	fs.StringVar(&o.Owner, "owner", o.Owner, "Only list tokens owned by this wallet")
	fs.IntVar(&o.Limit, "limit", o.Limit, "Maximum number of tokens to list")
	fs.IntVar(&o.Offset, "offset", o.Offset, "Number of tokens to skip")
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	if _, _, err := parseAndValidateKindId(args[0]); err != nil {
		return err
	}
	if o.Limit < 1 || o.Offset < 0 {
		return fmt.Errorf("--limit must be positive and --offset must not be negative")
	}

	return validateOutput(o.Output)
}

func (o *GetOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return err
	}

	kind, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	var response any
	switch {
	case kind == NftKind && id == "":
		response, err = c.ListNfts(ctx, strings.ToLower(o.Owner), o.Limit, o.Offset)
	case kind == NftKind:
		response, err = c.GetNft(ctx, id)
	case kind == VerificationKind && id != "":
		response, err = c.GetVerification(ctx, id)
	default:
		return fmt.Errorf("unsupported resource: %s", args[0])
	}
	if err != nil {
		if id == "" {
			return fmt.Errorf("listing %s: %w", pluralKinds[kind], err)
		}
		return fmt.Errorf("reading %s/%s: %w", kind, id, err)
	}

	if ok, err := printStructured(o.out, response, o.Output); ok {
		return err
	}
	return printTable(o.out, response)
}

// parseAndValidateKindId accepts "kind", "kinds" and "kind/id".
func parseAndValidateKindId(arg string) (string, string, error) {
	kind, id, _ := strings.Cut(arg, "/")
	kind = singular(strings.ToLower(kind))
	if _, ok := pluralKinds[kind]; !ok {
		return "", "", fmt.Errorf("invalid resource kind: %s", kind)
	}
	if strings.Contains(id, "/") {
		return "", "", fmt.Errorf("invalid resource id: %s", id)
	}
	if kind == VerificationKind && id == "" {
		return "", "", fmt.Errorf("verifications can only be read by id")
	}
	return kind, id, nil
}

func singular(kind string) string {
	for s, p := range pluralKinds {
		if kind == p {
			return s
		}
	}
	return kind
}

func printTable(out io.Writer, response any) error {
	w := tabwriter.NewWriter(out, 0, 8, 1, '\t', 0)
	switch r := response.(type) {
	case *api.NftList:
		printNftsTable(w, r.Items...)
		w.Flush()
		fmt.Fprintf(out, "\n%d of %d tokens\n", len(r.Items), r.Total)
		return nil
	case *api.Nft:
		printNftsTable(w, *r)
	case *api.Verification:
		printVerificationTable(w, *r)
	default:
		return fmt.Errorf("unknown resource type %T", response)
	}
	return w.Flush()
}

func printNftsTable(w *tabwriter.Writer, nfts ...api.Nft) {
	fmt.Fprintln(w, "TOKEN ID\tNAME\tOWNER\tIMAGE CID\tCREATED")
	for _, n := range nfts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.TokenID, n.Name, n.Owner, n.ImageCID, n.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func printVerificationTable(w *tabwriter.Writer, v api.Verification) {
	positive := funk.Filter(v.Responses, func(r api.AgentResponse) bool {
		return r.Verified != nil && *r.Verified
	}).([]api.AgentResponse)

	fmt.Fprintln(w, "ID\tSTATUS\tREQUESTER\tIMAGE CID\tRESPONSES")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n", v.VerificationID, v.Status, v.Requester, v.ImageCID, len(positive), len(v.Responses))
}
