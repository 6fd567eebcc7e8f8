package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/cardbank/pkg/card"
	"github.com/uhyunpark/cardbank/pkg/storage"
)

// Pebble holds an exclusive lock on its directory, so these commands only
// work while the node is stopped.
func openStore(rc *rootConfig, dbPath string) (*storage.PebbleStore, error) {
	if dbPath == "" {
		dbPath = rc.cfg.Storage.DBPath
	}
	s, err := storage.NewPebbleStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s (is the node running?): %w", dbPath, err)
	}
	return s, nil
}

func newLedgerCmd(rc *rootConfig) *cobra.Command {
	var (
		dbPath string
		from   int64
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Dump ledger entries as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(rc, dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.LedgerRange(from, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default DB_PATH)")
	cmd.Flags().Int64Var(&from, "from", 1, "first sequence")
	cmd.Flags().IntVar(&limit, "limit", 0, "max entries (0 = all)")
	return cmd
}

func newAccountCmd(rc *rootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "account <holder>",
		Short: "Show an account record and its open positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(rc, dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			id := card.IdentityOf(args[0])
			acc, err := s.LoadAccount(id)
			if err != nil {
				return err
			}
			if acc == nil {
				return fmt.Errorf("no account for %q (id %s)", args[0], id)
			}
			open, err := s.LoadPositions(id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"account":   acc,
				"positions": open,
			})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default DB_PATH)")
	return cmd
}
