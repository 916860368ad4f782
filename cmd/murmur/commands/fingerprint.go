package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the local identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			kp, found, err := wire.Keys.LoadKeyPair(passphrase)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no identity yet; run login first")
			}
			fmt.Printf("Fingerprint: %s\n", crypto.Fingerprint(kp.Public()))
			return nil
		},
	}
}
