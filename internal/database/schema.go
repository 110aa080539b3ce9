package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL for every table this service owns, in dependency
// order. Statements are idempotent so Migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		user_type VARCHAR(32) NOT NULL DEFAULT 'USER',
		mobile_no VARCHAR(32) NOT NULL DEFAULT '',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		is_deleted TINYINT(1) NOT NULL DEFAULT 0,
		login_retry_count INT NOT NULL DEFAULT 0,
		login_lock_until DATETIME NULL,
		reset_code CHAR(36) NULL,
		reset_expires_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_reset_code (reset_code)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS roles (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(32) NOT NULL,
		name VARCHAR(64) NOT NULL,
		weight INT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_roles_code (code)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS routes (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		uri VARCHAR(255) NOT NULL,
		method VARCHAR(10) NOT NULL,
		UNIQUE KEY uq_routes_uri_method (uri, method)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		role_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_user_roles (user_id, role_id),
		CONSTRAINT fk_user_roles_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_user_roles_role FOREIGN KEY (role_id) REFERENCES roles(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS route_roles (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		route_id BIGINT UNSIGNED NOT NULL,
		role_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_route_roles (route_id, role_id),
		CONSTRAINT fk_route_roles_route FOREIGN KEY (route_id) REFERENCES routes(id),
		CONSTRAINT fk_route_roles_role FOREIGN KEY (role_id) REFERENCES roles(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS session_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token VARCHAR(512) NOT NULL,
		platform VARCHAR(16) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_session_tokens_token (token(191)),
		KEY idx_session_tokens_user (user_id),
		CONSTRAINT fk_session_tokens_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB`,
}

// Migrate applies the schema. Safe to call on every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
