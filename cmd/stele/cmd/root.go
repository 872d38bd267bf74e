package cmd

import "github.com/spf13/cobra"

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stele",
		Short: "stele challenge indexer",
	}
	cmd.PersistentFlags().StringP("config", "c", "config.yml", "config file path")
	cmd.AddCommand(IndexerCmd())
	cmd.AddCommand(FetcherCmd())
	cmd.AddCommand(ServerCmd())
	return cmd
}
