package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate, register keys, and verify the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer orch.Logout()

			fp, err := orch.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s.\nFingerprint: %s\n", orch.User(), fp)
			return nil
		},
	}
}
