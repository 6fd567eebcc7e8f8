package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/cardbank/pkg/auth"
)

func newTokenCmd(rc *rootConfig) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint or check platform connection tokens",
	}
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "signing secret (default CONNECTION_SECRET)")

	resolve := func() []byte {
		if secret == "" {
			secret = rc.cfg.Bank.ConnectionSecret
		}
		return []byte(secret)
	}

	var number, expiry, code string
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Mint a token for a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			if number == "" || expiry == "" || code == "" {
				return fmt.Errorf("--number, --expiry and --code are required")
			}
			tok := auth.Sign(resolve(), auth.Claims{
				CardNumber: number,
				Expiry:     expiry,
				VerifyCode: code,
				IssuedAt:   time.Now(),
			})
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	sign.Flags().StringVar(&number, "number", "", "card number")
	sign.Flags().StringVar(&expiry, "expiry", "", "expiry MM/YY")
	sign.Flags().StringVar(&code, "code", "", "verification code")

	check := &cobra.Command{
		Use:   "check <token>",
		Short: "Verify a token's signature and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := auth.Check(resolve(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"card_number": claims.CardNumber,
				"expiry":      claims.Expiry,
				"verify_code": claims.VerifyCode,
				"issued_at":   claims.IssuedAt.UTC().Format(time.RFC3339),
			})
		},
	}

	cmd.AddCommand(sign, check)
	return cmd
}
