// cardbank-admin is the operator CLI: preview card generation, mint and
// check connection tokens, and inspect a stopped node's database.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/cardbank/params"
)

type rootConfig struct {
	envPath string
	cfg     params.Config
}

func newRootCmd() *cobra.Command {
	rc := &rootConfig{}
	cmd := &cobra.Command{
		Use:           "cardbank-admin",
		Short:         "Operator tools for the card bank",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			rc.cfg = params.LoadFromEnv(rc.envPath)
		},
	}
	cmd.PersistentFlags().StringVar(&rc.envPath, "env", "", "path to .env file (default ./.env)")

	cmd.AddCommand(
		newCardCmd(rc),
		newTokenCmd(rc),
		newLedgerCmd(rc),
		newAccountCmd(rc),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
