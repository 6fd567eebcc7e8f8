package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/cardbank/pkg/card"
)

func newCardCmd(rc *rootConfig) *cobra.Command {
	var (
		scheme   string
		cardType string
		atStr    string
		years    int
	)

	cmd := &cobra.Command{
		Use:   "card <holder>",
		Short: "Preview the card a holder would be issued at a given instant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder := args[0]
			at := time.Now()
			if atStr != "" {
				var err error
				if at, err = time.Parse(time.RFC3339, atStr); err != nil {
					return fmt.Errorf("bad --at: %w", err)
				}
			}
			if years <= 0 {
				years = rc.cfg.Bank.CardExpiryYears
			}

			s, err := card.NormalizeScheme(scheme)
			if err != nil {
				return err
			}
			ct, err := card.NormalizeCardType(cardType)
			if err != nil {
				return err
			}
			name, err := card.DisplayName(s, ct)
			if err != nil {
				return err
			}
			seed := card.Seed(holder, at)
			c, err := card.Generate(card.NewRand(seed), s, at, years)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"holder":      holder,
				"account_id":  card.IdentityOf(holder),
				"seed":        seed,
				"card":        name,
				"number":      c.Number,
				"expiry":      c.Expiry,
				"verify_code": c.VerifyCode,
			})
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", "Visa", "Visa or MasterCard")
	cmd.Flags().StringVar(&cardType, "type", "Classic", "Infinite, Platinum or Classic")
	cmd.Flags().StringVar(&atStr, "at", "", "issue instant, RFC3339 (default now)")
	cmd.Flags().IntVar(&years, "years", 0, "validity in years (default CARD_EXPIRY_YEARS)")
	return cmd
}
