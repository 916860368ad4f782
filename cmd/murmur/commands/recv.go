package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recv: fetch, decrypt, and verify queued messages.
func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer orch.Logout()

			msgs, err := orch.PullMessages(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				if !m.Verified {
					fmt.Printf("[%s] UNVERIFIED message dropped\n", m.From)
					continue
				}
				fmt.Printf("[%s] %s\n", m.From, string(m.Plaintext))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to pull (0 for all)")
	return cmd
}
