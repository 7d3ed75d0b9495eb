// Package services contains the application's business logic: user accounts,
// exercise definitions, question generation and the progress accumulator.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"

	"github.com/lib/pq"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	CreateUserWithPassword(ctx context.Context, username, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int, newPassword string) error
	UpdateLastActive(ctx context.Context, userID int) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, userID int) error
	EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error
	SetPremium(ctx context.Context, userID int, premium bool) error
	GetUserRoles(ctx context.Context, userID int) ([]models.Role, error)
	AssignRoleByName(ctx context.Context, userID int, roleName string) error
	HasRole(ctx context.Context, userID int, roleName string) (bool, error)
	IsAdmin(ctx context.Context, userID int) (bool, error)
	GetDB() *sql.DB
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

const userSelectFields = `id, username, email, password_hash, timezone, last_active, premium, premium_since, created_at, updated_at`

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *UserService) scanUserFromRow(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Timezone,
		&user.LastActive, &user.Premium, &user.PremiumSince, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// getUserByQuery is a shared method for getting a user by any query
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (result0 *models.User, err error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	user, err := s.scanUserFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found is not an error here
		}
		return nil, err
	}
	return user, nil
}

// CreateUserWithPassword creates a new user with a bcrypt-hashed password
// and assigns the default student role.
func (s *UserService) CreateUserWithPassword(ctx context.Context, username, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user_with_password", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(username) == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "username cannot be empty")
	}
	if !contextutils.IsValidUsername(username) {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid username")
	}
	if email != "" && !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid email address")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var emailValue interface{}
	if email != "" {
		emailValue = email
	}

	query := `INSERT INTO users (username, email, password_hash, last_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now()
	var id int
	err = s.db.QueryRowContext(ctx, query, username, emailValue, string(hashedPassword), now, now, now).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.ErrRecordExists
		}
		return nil, err
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, "user was created but could not be retrieved from database")
	}

	if err := s.AssignRoleByName(ctx, user.ID, models.RoleStudent); err != nil {
		// Role assignment can be repaired by an admin, don't fail signup
		s.logger.Warn(ctx, "Failed to assign default student role", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	return user, nil
}

// AuthenticateUser verifies user credentials and returns the user if valid
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID, with roles loaded
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", attribute.Int("user.id", id))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields)
	user, err := s.getUserByQuery(ctx, query, id)
	if err != nil {
		s.logger.Error(ctx, "Database error retrieving user", err, map[string]interface{}{"user_id": id})
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	roles, err := s.GetUserRoles(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "Failed to load user roles", map[string]interface{}{"user_id": id, "error": err.Error()})
		user.Roles = []models.Role{}
	} else {
		user.Roles = roles
	}

	return user, nil
}

// GetUserByUsername retrieves a user by their username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, username)
}

// GetUserByEmail retrieves a user by their email address
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, email)
}

// UpdateUserPassword updates a user's password hash
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		string(hashedPassword), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	return requireRowsAffected(result)
}

// UpdateLastActive updates the user's last activity timestamp
func (s *UserService) UpdateLastActive(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_last_active", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET last_active = CURRENT_TIMESTAMP WHERE id = $1`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update last active")
	}
	return nil
}

// SetPremium flips a user's premium flag. Activation records the timestamp,
// deactivation clears it.
func (s *UserService) SetPremium(ctx context.Context, userID int, premium bool) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "set_premium",
		attribute.Int("user.id", userID), attribute.Bool("user.premium", premium))
	defer observability.FinishSpan(span, &err)

	var result sql.Result
	if premium {
		result, err = s.db.ExecContext(ctx,
			`UPDATE users SET premium = TRUE, premium_since = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
			userID)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE users SET premium = FALSE, premium_since = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
			userID)
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to update premium flag")
	}
	return requireRowsAffected(result)
}

// GetAllUsers returns all users without password hashes
func (s *UserService) GetAllUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_all_users")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, timezone, last_active, premium, premium_since, created_at, updated_at FROM users ORDER BY username`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.Timezone, &user.LastActive,
			&user.Premium, &user.PremiumSince, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user")
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes a user; progress and role rows cascade
func (s *UserService) DeleteUser(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "delete_user", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}
	return requireRowsAffected(result)
}

// EnsureAdminUserExists creates or repairs the admin account from config
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user_exists", attribute.String("user.username", adminUsername))
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" || adminPassword == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "admin username and password must be configured")
	}

	user, err := s.GetUserByUsername(ctx, adminUsername)
	if err != nil {
		return err
	}

	if user == nil {
		user, err = s.CreateUserWithPassword(ctx, adminUsername, "", adminPassword)
		if err != nil {
			return contextutils.WrapError(err, "failed to create admin user")
		}
		s.logger.Info(ctx, "Created admin user", map[string]interface{}{"user_id": user.ID})
	}

	isAdmin, err := s.HasRole(ctx, user.ID, models.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		if err := s.AssignRoleByName(ctx, user.ID, models.RoleAdmin); err != nil {
			return contextutils.WrapError(err, "failed to assign admin role")
		}
		s.logger.Info(ctx, "Assigned admin role", map[string]interface{}{"user_id": user.ID})
	}

	return nil
}

// GetUserRoles returns the roles assigned to a user
func (s *UserService) GetUserRoles(ctx context.Context, userID int) (result0 []models.Role, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_roles", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, COALESCE(r.description, ''), r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query user roles")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan role")
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AssignRoleByName assigns the named role to a user, idempotently
func (s *UserService) AssignRoleByName(ctx context.Context, userID int, roleName string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "assign_role_by_name",
		attribute.Int("user.id", userID), attribute.String("role.name", roleName))
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleName)
	if err != nil {
		return contextutils.WrapError(err, "failed to assign role")
	}
	return nil
}

// HasRole checks whether a user carries the named role
func (s *UserService) HasRole(ctx context.Context, userID int, roleName string) (result0 bool, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "has_role",
		attribute.Int("user.id", userID), attribute.String("role.name", roleName))
	defer observability.FinishSpan(span, &err)

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		)`, userID, roleName).Scan(&exists)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check role")
	}
	return exists, nil
}

// IsAdmin checks whether a user has the admin role
func (s *UserService) IsAdmin(ctx context.Context, userID int) (bool, error) {
	return s.HasRole(ctx, userID, models.RoleAdmin)
}

// GetDB exposes the underlying connection for services that share it
func (s *UserService) GetDB() *sql.DB {
	return s.db
}

// isDuplicateKeyError checks for a PostgreSQL unique violation
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func requireRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if affected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}
