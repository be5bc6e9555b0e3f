// Package cli implements matchctl, the operator command line for the matching service.
package cli

import (
	"fmt"

	"talentMarket/internal/bootstrap"
	"talentMarket/pkg/config"
	"talentMarket/pkg/logger"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type app struct {
	cfg       *config.Config
	container *bootstrap.Container
	migrate   bool
}

// NewRootCommand builds the command tree. Configuration comes from the same
// environment variables as the server.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "matchctl",
		Short:         "Operate the talent matching service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(bootstrap.ValidateWeights)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.App.Environment, cfg.App.LogLevel, cfg.App.LogFile)
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.container != nil {
				a.container.Close()
			}
			logger.Close()
		},
	}
	root.PersistentFlags().BoolVar(&a.migrate, "migrate", false, "create missing tables before running")

	root.AddCommand(
		newMigrateCmd(a),
		newGenerateCmd(a),
		newTopUpCmd(a),
		newRefundCmd(a),
		newReconcileCmd(a),
		newTokenCmd(a),
	)
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

// services connects storage on first use.
func (a *app) services() (*bootstrap.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	c, err := bootstrap.Open(a.cfg, a.migrate)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.container = c
	return c, nil
}
