package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaconcert/meco/internal/observability"
	"github.com/metaconcert/meco/internal/token"
)

func GenesisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genesis",
		Short: "Initialize the persistent ledger in storage_dir and print its state root",
		RunE:  genesis,
	}
}

func genesis(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Persistent = true
	observability.InitLogger("mecod", cfg.LogLevel)

	tok, err := token.Open(cfg)
	if err != nil {
		return err
	}
	defer tok.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "storage: %s\nowner:   %s\nsupply:  %s\nroot:    %s\n",
		cfg.StorageDir, tok.Owner().Hex(), tok.TotalSupply().Dec(), tok.StateRoot().Hex())
	return nil
}
