package main

import (
	"github.com/spf13/cobra"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/handler"
	"github.com/weiwangfds/structview/internal/logger"
)

// globalOptions 所有子命令共享的参数
type globalOptions struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "structview",
		Short:         "StructView stores uploaded mmCIF structures and their upload history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := logger.Init(&cfg.Log); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.Version = version
	handler.Version = version
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./config.yaml, ./config/config.yaml, /etc/structview/config.yaml)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newCheckCmd(opts),
	)
	return cmd
}
