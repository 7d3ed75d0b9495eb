package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the math application.

Available commands:
  list           - List all users
  create         - Create a new user
  reset-password - Reset password for a specific user
  set-premium    - Grant or revoke premium access
  assign-role    - Assign a role to a user`,
	}

	// Add subcommands
	userCmd.AddCommand(listCmd(userService, logger, databaseURL))
	userCmd.AddCommand(createUserCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))
	userCmd.AddCommand(setPremiumCmd(userService, logger))
	userCmd.AddCommand(assignRoleCmd(userService, logger))

	return userCmd
}

// listCmd returns the list command
func listCmd(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Long:  `List all users in the database with their basic information.`,
		RunE:  runListUsers(userService, logger, databaseURL),
	}
}

// createUserCmd returns the create command
func createUserCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a new user",
		Long:  `Create a new user account. You will be prompted for a password.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runCreateUser(userService, logger, &email),
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address for the new user")

	return cmd
}

// resetPasswordCmd returns the reset-password command
func resetPasswordCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a specific user. If username is not provided, you will be prompted for it.`,
		RunE:  runResetPassword(userService, logger),
	}
}

// setPremiumCmd returns the set-premium command
func setPremiumCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "set-premium [username]",
		Short: "Grant or revoke premium access",
		Long:  `Grant premium access to a user, or revoke it with --revoke.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runSetPremium(userService, logger, &revoke),
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke premium access instead of granting it")

	return cmd
}

// assignRoleCmd returns the assign-role command
func assignRoleCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "assign-role [username] [role]",
		Short: "Assign a role to a user",
		Long:  `Assign a role (admin, teacher, student) to a specific user.`,
		Args:  cobra.ExactArgs(2),
		RunE:  runAssignRole(userService, logger),
	}
}

// runListUsers returns a function that lists all users
func runListUsers(userService *services.UserService, logger *observability.Logger, databaseURL string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Show diagnostic information
		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("MATHAPP_CONFIG_FILE"), "database_url": maskDatabaseURL(databaseURL)})

		users, err := userService.GetAllUsers(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to get users", err, map[string]interface{}{})
			return contextutils.WrapError(err, "failed to get users")
		}

		if len(users) == 0 {
			logger.Info(ctx, "No users found in the database", nil)
			return nil
		}

		// Print header to stdout (user-facing table)
		fmt.Printf("%-5s %-20s %-30s %-20s %-8s %-12s %-10s\n", "ID", "Username", "Email", "Timezone", "Premium", "Last Active", "Created")

		// Print each user
		for _, user := range users {
			email := "N/A"
			if user.Email.Valid {
				email = user.Email.String
			}

			timezone := "N/A"
			if user.Timezone.Valid {
				timezone = user.Timezone.String
			}

			premium := "No"
			if user.Premium {
				premium = "Yes"
			}

			lastActive := "Never"
			if user.LastActive.Valid {
				lastActive = user.LastActive.Time.Format("2006-01-02")
			}

			fmt.Printf("%-5d %-20s %-30s %-20s %-8s %-12s %-10s\n",
				user.ID,
				user.Username,
				email,
				timezone,
				premium,
				lastActive,
				user.CreatedAt.Format("2006-01-02"),
			)
		}

		logger.Info(ctx, "Listed users", map[string]interface{}{"total": len(users)})
		return nil
	}
}

// runCreateUser returns a function that creates a new user
func runCreateUser(userService *services.UserService, logger *observability.Logger, email *string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		username := args[0]

		password, err := promptPassword("Enter password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return contextutils.ErrorWithContextf("passwords do not match")
		}

		user, err := userService.CreateUserWithPassword(ctx, username, *email, password)
		if err != nil {
			logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to create user '%s'", username)
		}

		fmt.Printf("User '%s' created (ID: %d)\n", user.Username, user.ID)
		logger.Info(ctx, "User created", map[string]interface{}{"username": user.Username, "user_id": user.ID})
		return nil
	}
}

// runResetPassword returns a function that resets a user's password
func runResetPassword(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var username string

		// Get username from args or prompt
		if len(args) > 0 {
			username = args[0]
		} else {
			fmt.Print("Enter username: ")
			if _, err := fmt.Scanln(&username); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
			}
		}

		if username == "" {
			return contextutils.ErrorWithContextf("username is required")
		}

		newPassword, err := promptPassword("Enter new password: ")
		if err != nil {
			return err
		}
		if newPassword == "" {
			return contextutils.ErrorWithContextf("password cannot be empty")
		}

		confirmPassword, err := promptPassword("Confirm new password: ")
		if err != nil {
			return err
		}
		if newPassword != confirmPassword {
			return contextutils.ErrorWithContextf("passwords do not match")
		}

		logger.Info(ctx, "Resetting password for user", map[string]interface{}{
			"username": username,
		})

		// Get user by username
		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user '%s': %v", username, err)
		}

		if user == nil {
			logger.Error(ctx, "User not found", nil, map[string]interface{}{"username": username})
			return contextutils.ErrorWithContextf("user '%s' not found", username)
		}

		// Update the password
		err = userService.UpdateUserPassword(ctx, user.ID, newPassword)
		if err != nil {
			logger.Error(ctx, "Failed to update password", err, map[string]interface{}{
				"username": username,
				"user_id":  user.ID,
			})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to update password for user '%s': %v", username, err)
		}

		fmt.Printf("Password successfully reset for user '%s' (ID: %d)\n", username, user.ID)
		logger.Info(ctx, "Password reset successful", map[string]interface{}{
			"username": username,
			"user_id":  user.ID,
		})

		return nil
	}
}

// runSetPremium returns a function that toggles a user's premium flag
func runSetPremium(userService *services.UserService, logger *observability.Logger, revoke *bool) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		username := args[0]

		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
		}
		if user == nil {
			return contextutils.ErrorWithContextf("user '%s' not found", username)
		}

		premium := !*revoke
		if err := userService.SetPremium(ctx, user.ID, premium); err != nil {
			logger.Error(ctx, "Failed to update premium status", err, map[string]interface{}{"username": username, "premium": premium})
			return contextutils.WrapErrorf(err, "failed to update premium status for user '%s'", username)
		}

		if premium {
			fmt.Printf("Premium access granted to '%s' (ID: %d)\n", username, user.ID)
		} else {
			fmt.Printf("Premium access revoked for '%s' (ID: %d)\n", username, user.ID)
		}
		logger.Info(ctx, "Premium status updated", map[string]interface{}{"username": username, "user_id": user.ID, "premium": premium})
		return nil
	}
}

// runAssignRole returns a function that assigns a role to a user
func runAssignRole(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		username := args[0]
		roleName := args[1]

		switch roleName {
		case models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
		default:
			return contextutils.ErrorWithContextf("unknown role '%s'", roleName)
		}

		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
		}
		if user == nil {
			return contextutils.ErrorWithContextf("user '%s' not found", username)
		}

		if err := userService.AssignRoleByName(ctx, user.ID, roleName); err != nil {
			logger.Error(ctx, "Failed to assign role", err, map[string]interface{}{"username": username, "role": roleName})
			return contextutils.WrapErrorf(err, "failed to assign role '%s' to user '%s'", roleName, username)
		}

		fmt.Printf("Role '%s' assigned to '%s' (ID: %d)\n", roleName, username, user.ID)
		logger.Info(ctx, "Role assigned", map[string]interface{}{"username": username, "user_id": user.ID, "role": roleName})
		return nil
	}
}

// promptPassword reads a password from the terminal without echoing it
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	return string(passwordBytes), nil
}
