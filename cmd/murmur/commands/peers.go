package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func peersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List other registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer orch.Logout()

			peers, err := orch.ListPeers(cmd.Context())
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Println("no other users registered")
				return nil
			}
			for _, p := range peers {
				fmt.Println(p)
			}
			return nil
		},
	}
}
