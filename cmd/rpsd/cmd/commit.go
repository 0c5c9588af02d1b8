package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"onchainrps/internal/commitment"
	"onchainrps/internal/rps"
)

type commitOutput struct {
	Move       string          `json:"move"`
	MoveValue  uint8           `json:"moveValue"`
	Salt       commitment.Salt `json:"salt"`
	Commitment commitment.Hash `json:"commitment"`
}

// newCommitCmd prints the commitment a player submits with create or join.
// The salt must be kept secret until the reveal.
func newCommitCmd() *cobra.Command {
	var moveStr, saltIn string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Compute keccak256(move || salt) for a move",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := rps.ParseMove(moveStr)
			if err != nil {
				return err
			}
			salt, err := commitment.SaltFromInput(saltIn)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(commitOutput{
				Move:       m.String(),
				MoveValue:  uint8(m),
				Salt:       salt,
				Commitment: commitment.Commit(m, salt),
			})
		},
	}
	cmd.Flags().StringVar(&moveStr, "move", "", "rock|paper|scissors or 0|1|2")
	cmd.Flags().StringVar(&saltIn, "salt", "", "salt: empty for random, 0x-hex, or a passphrase hashed with keccak256")
	_ = cmd.MarkFlagRequired("move")
	return cmd
}

func newSaltCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "salt [input]",
		Short: "Print a 32-byte salt (random when no input is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := ""
			if len(args) == 1 {
				in = args[0]
			}
			salt, err := commitment.SaltFromInput(in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), salt.String())
			return nil
		},
	}
}
