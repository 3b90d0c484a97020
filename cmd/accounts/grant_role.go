package main

import (
	"fmt"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/infrastructure/config"
	"github.com/99minutos/accounts-service/internal/infrastructure/db/postgres"
)

// NewGrantRoleCmd creates the grant-role subcommand. It is the only way to
// create the first admin, since role changes over HTTP need one already.
func NewGrantRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-role <user_id> <user_role>",
		Short: "Set a user's role directly in the database",
		Args:  cobra.ExactArgs(2),
		RunE:  runGrantRole,
	}
}

func runGrantRole(cmd *cobra.Command, args []string) error {
	userID, role, err := parseGrant(args[0], args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := config.LoadDatabase(ctx, envconfig.OsLookuper())
	if err != nil {
		return err
	}

	pool, err := postgres.Connect(ctx, postgresConfig(*db))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	updated, err := postgres.NewStore(pool).UpdateUserRole(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if !updated {
		return fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}

	cmd.Printf("User %s is now %s\n", userID, role)
	return nil
}

func parseGrant(rawID, rawRole string) (domain.UserID, domain.UserRole, error) {
	userID, err := domain.ParseAndValidateUserID(domain.RawString(rawID))
	if err != nil {
		return domain.UserID{}, "", err
	}
	role, err := domain.ParseUserRole(domain.RawString(rawRole))
	if err != nil {
		return domain.UserID{}, "", err
	}
	return userID, role, nil
}
