package main

import (
	"github.com/spf13/cobra"

	"github.com/99minutos/accounts-service/internal/infrastructure/config"
	"github.com/99minutos/accounts-service/internal/infrastructure/db/postgres"
)

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "User accounts and session service",
		Long: `accounts registers users, verifies their credentials and issues
session tokens and short-lived access tokens over HTTP.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewGrantRoleCmd())

	return cmd
}

func postgresConfig(db config.DBConfig) postgres.Config {
	return postgres.Config{
		Host:     db.Host,
		Port:     db.Port,
		User:     db.User,
		Password: db.Password,
		Database: db.Name,
		SSLMode:  db.SSLMode,
		MaxConns: db.MaxConns,
	}
}
