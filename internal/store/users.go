package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/models"
)

// Authenticate checks the operator's credentials and marks them online.
// Passwords are stored in clear per the existing users schema contract.
func Authenticate(ctx context.Context, db *sql.DB, username, password string) (*models.User, error) {
	user := &models.User{Username: username}

	query := `
		SELECT id, role, status, total_income_access, product_management_access, billing_access, logout_access
		FROM users
		WHERE username = $1 AND password = $2`

	err := db.QueryRowContext(ctx, query, username, password).Scan(
		&user.ID,
		&user.Role,
		&user.Status,
		&user.TotalIncomeAccess,
		&user.ProductManagementAccess,
		&user.BillingAccess,
		&user.LogoutAccess,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate %q: %w", username, err)
	}

	if err := SetUserStatus(ctx, db, username, models.UserStatusOnline); err != nil {
		return nil, err
	}
	user.Status = models.UserStatusOnline

	return user, nil
}

func SetUserStatus(ctx context.Context, db *sql.DB, username, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET status = $1 WHERE username = $2`, status, username)
	if err != nil {
		return fmt.Errorf("set status for %q: %w", username, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

func CreateUser(ctx context.Context, db *sql.DB, username, password, role string, perms models.Permissions) (*models.User, error) {
	user := &models.User{
		Username:    username,
		Role:        role,
		Status:      models.UserStatusOffline,
		Permissions: perms,
	}

	query := `
		INSERT INTO users (username, password, role, status, total_income_access, product_management_access, billing_access, logout_access)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := db.QueryRowContext(ctx, query,
		username, password, role, models.UserStatusOffline,
		perms.TotalIncomeAccess, perms.ProductManagementAccess, perms.BillingAccess, perms.LogoutAccess,
	).Scan(&user.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create user: username %q already exists", username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// ListRoles backs the role-management screen: every role with its users and
// access flags.
func ListRoles(ctx context.Context, db *sql.DB) ([]models.User, error) {
	query := `
		SELECT id, username, role, status, total_income_access, product_management_access, billing_access, logout_access
		FROM users
		WHERE role IS NOT NULL
		ORDER BY role, username`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Role,
			&user.Status,
			&user.TotalIncomeAccess,
			&user.ProductManagementAccess,
			&user.BillingAccess,
			&user.LogoutAccess,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// UpdateRolePermissions rewrites the access flags for every user holding
// the role.
func UpdateRolePermissions(ctx context.Context, db *sql.DB, role string, perms models.Permissions) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users
		 SET total_income_access = $1, product_management_access = $2, billing_access = $3, logout_access = $4
		 WHERE role = $5`,
		perms.TotalIncomeAccess, perms.ProductManagementAccess, perms.BillingAccess, perms.LogoutAccess, role)
	if err != nil {
		return fmt.Errorf("update role %q: %w", role, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrRoleNotFound
	}

	return nil
}

func DeleteRole(ctx context.Context, db *sql.DB, role string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE role = $1`, role)
	if err != nil {
		return fmt.Errorf("delete role %q: %w", role, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrRoleNotFound
	}

	return nil
}
