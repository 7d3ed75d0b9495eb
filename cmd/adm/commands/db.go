// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"

	"mathapp/internal/config"
	"mathapp/internal/database"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(userService *services.UserService, dbManager *database.Manager, cfg *config.Config, logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the math application.

Available commands:
  stats   - Show database statistics
  migrate - Run pending database migrations`,
	}

	// Add subcommands
	dbCmd.AddCommand(statsCmd(userService, logger, db))
	dbCmd.AddCommand(migrateCmd(dbManager, cfg, logger))

	return dbCmd
}

// statsCmd returns the stats command
func statsCmd(userService *services.UserService, logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show database statistics including user and progress counts.`,
		RunE:  runStats(userService, logger, db),
	}
}

// migrateCmd returns the migrate command
func migrateCmd(dbManager *database.Manager, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending database migrations",
		Long:  `Apply all pending schema migrations to the configured database.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			logger.Info(ctx, "Running database migrations", map[string]interface{}{"database_url": maskDatabaseURL(cfg.Database.URL)})

			if err := dbManager.RunMigrations(cfg.Database.URL); err != nil {
				logger.Error(ctx, "Failed to run migrations", err, map[string]interface{}{})
				return contextutils.WrapError(err, "failed to run migrations")
			}

			logger.Info(ctx, "Migrations complete", map[string]interface{}{})
			return nil
		},
	}
}

// runStats returns a function that shows database statistics
func runStats(userService *services.UserService, logger *observability.Logger, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Log diagnostic information
		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("MATHAPP_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		// Get user statistics
		users, err := userService.GetAllUsers(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to get user statistics", err, map[string]interface{}{})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user statistics: %v", err)
		}

		premiumCount := 0
		for _, user := range users {
			if user.Premium {
				premiumCount++
			}
		}

		var progressCount int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_progress").Scan(&progressCount); err != nil {
			logger.Warn(ctx, "Failed to count progress rows", map[string]interface{}{"error": err.Error()})
		}

		logger.Info(ctx, "Database statistics", map[string]interface{}{
			"total_users":   len(users),
			"premium_users": premiumCount,
			"progress_rows": progressCount,
			"database":      "PostgreSQL",
			"status":        "Connected",
		})

		return nil
	}
}

// maskDatabaseURL hides credentials in a connection URL before it is logged
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("***", "***")
	return u.String()
}

// getDatabaseInfo describes the live connection for diagnostics output
func getDatabaseInfo(db *sql.DB) string {
	if db == nil {
		return "not connected"
	}

	var dbName string
	if err := db.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		return "connected (database name unavailable)"
	}

	var host string
	if err := db.QueryRow("SELECT COALESCE(inet_server_addr()::text, 'local socket')").Scan(&host); err != nil {
		return fmt.Sprintf("connected to %s", dbName)
	}
	return fmt.Sprintf("connected to %s via %s", dbName, host)
}
