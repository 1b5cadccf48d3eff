package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/staysearch/internal/config"
	"github.com/kailas-cloud/staysearch/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	env        string
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "staysearch",
		Short: "Inventory search index and relaxed query engine",
		Long: `staysearch keeps a denormalized search index of bookable units in sync
with the system of record and serves structured searches against it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(),
		"environment name, selects config/<env>.yaml")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"explicit config file path (overrides --env lookup)")

	root.AddCommand(
		newServeCmd(flags),
		newRebuildCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("staysearch version %s\n", version.String())
		},
	}
}
