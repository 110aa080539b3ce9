package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/marketbase/auth-service/internal/model"
)

// AccessRepo persists the RBAC relations: roles, the route registry, and
// the user_roles / route_roles join tables. Roles and grants are reference
// data loaded once from the seed fixture, so writes here are idempotent
// upserts.
type AccessRepo struct{ DB *sql.DB }

func NewAccessRepo(db *sql.DB) *AccessRepo { return &AccessRepo{DB: db} }

// EnsureRole upserts a role by code and returns its id. The
// LAST_INSERT_ID(id) trick makes the id of an existing row come back
// through the same channel as a fresh insert.
func (r *AccessRepo) EnsureRole(ctx context.Context, code, name string, weight int) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO roles (code, name, weight) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id), name=VALUES(name), weight=VALUES(weight)`,
		strings.ToUpper(code), name, weight)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EnsureRoute upserts a route registry entry and returns its id. URIs are
// stored lower-cased; methods upper-cased.
func (r *AccessRepo) EnsureRoute(ctx context.Context, uri, method string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO routes (uri, method) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)`,
		strings.ToLower(uri), strings.ToUpper(method))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GrantRoute lets a role invoke a route. Idempotent.
func (r *AccessRepo) GrantRoute(ctx context.Context, routeID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO route_roles (route_id, role_id) VALUES (?,?)",
		routeID, roleID)
	return err
}

// RevokeRoute removes a role's grant on a route.
func (r *AccessRepo) RevokeRoute(ctx context.Context, routeID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM route_roles WHERE route_id=? AND role_id=?",
		routeID, roleID)
	return err
}

// AssignRole grants a role to a user. Idempotent.
func (r *AccessRepo) AssignRole(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)",
		userID, roleID)
	return err
}

// RoleByCode fetches a role by its unique code.
func (r *AccessRepo) RoleByCode(ctx context.Context, code string) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, code, name, weight FROM roles WHERE code=? LIMIT 1",
		strings.ToUpper(code)).Scan(&role.ID, &role.Code, &role.Name, &role.Weight)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// RolesForUser returns every role granted to a user, highest weight first.
func (r *AccessRepo) RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.code, r.name, r.weight FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id=? ORDER BY r.weight DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Code, &role.Name, &role.Weight); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// FindRoute resolves a normalized (uri, method) pair against the route
// registry. ErrNotFound here means the route was never seeded.
func (r *AccessRepo) FindRoute(ctx context.Context, uri, method string) (model.Route, error) {
	var rt model.Route
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, uri, method FROM routes WHERE uri=? AND method=? LIMIT 1",
		strings.ToLower(uri), strings.ToUpper(method)).Scan(&rt.ID, &rt.URI, &rt.Method)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, ErrNotFound
	}
	return rt, err
}

// HasGrant reports whether any of the given roles may invoke the route.
func (r *AccessRepo) HasGrant(ctx context.Context, routeID uint64, roleIDs []uint64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	placeholders := strings.Repeat(",?", len(roleIDs))[1:]
	args := make([]interface{}, 0, len(roleIDs)+1)
	args = append(args, routeID)
	for _, id := range roleIDs {
		args = append(args, id)
	}
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM route_roles WHERE route_id=? AND role_id IN ("+placeholders+")",
		args...).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RoutesForRole lists every route a role may invoke, for the bulk
// role-access summary.
func (r *AccessRepo) RoutesForRole(ctx context.Context, roleID uint64) ([]model.Route, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rt.id, rt.uri, rt.method FROM routes rt
		 JOIN route_roles rr ON rr.route_id = rt.id
		 WHERE rr.role_id=? ORDER BY rt.uri`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []model.Route
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.URI, &rt.Method); err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}
