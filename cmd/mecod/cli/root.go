package cli

import (
	"github.com/spf13/cobra"

	"github.com/metaconcert/meco/config"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:           "mecod",
		Short:         "META CONCERT token ledger with time-locked balances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() error {
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(GenesisCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "config file")
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}
