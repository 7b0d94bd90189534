package cli

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/convoy/internal/services/invite"
)

func newPartyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "party",
		Short: "Party management commands",
	}

	cmd.AddCommand(newPartyCreateCmd())
	cmd.AddCommand(newPartyGetCmd())
	cmd.AddCommand(newPartyMembersCmd())
	cmd.AddCommand(newPartyJoinCmd())
	cmd.AddCommand(newPartyLeaveCmd())
	cmd.AddCommand(newPartyDisbandCmd())

	return cmd
}

func partyPath(id string, suffix string) string {
	return "/api/v1/parties/" + url.PathEscape(id) + suffix
}

func newPartyCreateCmd() *cobra.Command {
	var name, qrOut string
	var maxMembers int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new party",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"name": name}
			if maxMembers > 0 {
				req["max_members"] = maxMembers
			}

			var result CreatedParty

			if err := client.Post(cmd.Context(), "/api/v1/parties", req, &result); err != nil {
				return err
			}

			if qrOut != "" {
				png, err := invite.DecodeDataURI(result.QRCode)
				if err != nil {
					return fmt.Errorf("failed to decode QR code: %w", err)
				}
				if err := os.WriteFile(qrOut, png, 0644); err != nil {
					return fmt.Errorf("failed to write QR code: %w", err)
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Party name (required)")
	cmd.Flags().IntVar(&maxMembers, "max-members", 0, "Capacity including the host (server default if unset)")
	cmd.Flags().StringVar(&qrOut, "qr-out", "", "Write the invite QR code PNG to this path")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPartyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <party-id>",
		Short: "Show party details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PartyResult

			if err := client.Get(cmd.Context(), partyPath(args[0], ""), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPartyMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <party-id>",
		Short: "List party members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MembersResult

			if err := client.Get(cmd.Context(), partyPath(args[0], "/members"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPartyJoinCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "join <party-id>",
		Short: "Join a party with its invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SuccessResult
			if err := client.Post(cmd.Context(), partyPath(args[0], "/join"), map[string]string{"invite_code": code}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Joined party %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Invite code (required)")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newPartyLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <party-id>",
		Short: "Leave a party",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SuccessResult
			if err := client.Post(cmd.Context(), partyPath(args[0], "/leave"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Left party %s", args[0]))
			return nil
		},
	}
}

func newPartyDisbandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disband <party-id>",
		Short: "Disband a party (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SuccessResult
			if err := client.Post(cmd.Context(), partyPath(args[0], "/disband"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Disbanded party %s", args[0]))
			return nil
		},
	}
}
