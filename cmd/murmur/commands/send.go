package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/domain"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer orch.Logout()

			peer := domain.UserID(args[0])
			msg := []byte(args[1])

			if channel != "" {
				ch := domain.ChannelID(channel)
				if err := orch.JoinChannel(ch, orch.User(), peer); err != nil {
					return err
				}
				if err := orch.SendMessage(cmd.Context(), ch, msg); err != nil {
					return err
				}
			} else if err := orch.SendDirect(cmd.Context(), peer, msg); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "send on a named channel instead of the 1:1 default")
	return cmd
}
