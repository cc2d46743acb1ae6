package gcmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gordian-engine/gorvote/gapi"
	"github.com/gordian-engine/gorvote/gapi/gapiclient"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/spf13/cobra"
)

const defaultAPITarget = "127.0.0.1:9000"

// addAPIFlag registers the --api flag and returns a function
// producing a client for the flag's value.
func addAPIFlag(cmd *cobra.Command) func() (*gapiclient.Client, error) {
	target := cmd.Flags().String(
		"api", defaultAPITarget,
		`operator API: host:port, http(s) URL, or "unix:" followed by a socket path`,
	)
	return func() (*gapiclient.Client, error) {
		return gapiclient.New(*target)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a consensor's mode, role, and consensor set",
		Args:  cobra.NoArgs,
	}
	client := addAPIFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	}
	return cmd
}

func newPeersCmd() *cobra.Command {
	peers := &cobra.Command{
		Use:   "peers",
		Short: "Manage the consensor set",
	}

	set := &cobra.Command{
		Use:   "set ADDR...",
		Short: "Fix the consensor set of a consensor in setup mode",
	}
	client := addAPIFlag(set)

	set.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		if err := c.SetupPeers(cmd.Context(), args); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Consensor set configured with %d peer(s)\n", len(args))
		return err
	}

	peers.AddCommand(set)
	return peers
}

func newProposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose TEXT",
		Short: "Queue a proposal for the next proposal call",
		Args:  cobra.ExactArgs(1),
	}
	client := addAPIFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		n, err := c.SubmitProposal(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Queued; %d proposal(s) waiting\n", n)
		return err
	}
	return cmd
}

func newVoteCmd() *cobra.Command {
	var round, proposal string

	cmd := &cobra.Command{
		Use:   "vote yes|no",
		Short: "Cast this consensor's vote on a round",
		Args:  cobra.ExactArgs(1),
	}
	client := addAPIFlag(cmd)
	cmd.Flags().StringVar(&round, "round", "", "round identifier, such as external:TEXT")
	cmd.Flags().StringVar(&proposal, "proposal", "", "proposal text of an external round")
	cmd.MarkFlagsMutuallyExclusive("round", "proposal")
	cmd.MarkFlagsOneRequired("round", "proposal")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v, err := gsum.ParseVote(args[0])
		if err != nil {
			return err
		}
		c, err := client()
		if err != nil {
			return err
		}

		err = c.Vote(cmd.Context(), gapi.VoteRequest{
			Round:    round,
			Proposal: proposal,
			Vote:     v,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Vote cast")
		return err
	}
	return cmd
}

func newRoundsCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "rounds",
		Short: "List rounds held in memory",
		Args:  cobra.NoArgs,
	}
	client := addAPIFlag(cmd)
	cmd.Flags().BoolVar(&debug, "debug", false, "include proposal-call and opaque rounds")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		sums, err := c.Rounds(cmd.Context(), debug)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sums)
	}
	return cmd
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List archived round results",
		Args:  cobra.NoArgs,
	}
	client := addAPIFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		rs, err := c.Results(cmd.Context())
		if err != nil {
			var apiErr *gapiclient.Error
			if errors.As(err, &apiErr) {
				return fmt.Errorf("listing results: %s", apiErr.Message)
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), rs)
	}
	return cmd
}
