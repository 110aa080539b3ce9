// Package rbac decides whether a user may invoke a route. Permissions are
// granted to roles (route_roles) and roles to users (user_roles); the
// resolver walks both relations per request, with a short-lived redis
// cache in front.
package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/repository"
)

// Deny outcomes. ErrRouteUnregistered is still a deny, but it signals a
// configuration gap (the route was never seeded) rather than a missing
// grant, so callers can log it loudly.
var (
	ErrForbidden         = errors.New("role has no permission for route")
	ErrRouteUnregistered = errors.New("route not present in route registry")
)

// AccessStore is the slice of the access repository the resolver needs.
// *repository.AccessRepo satisfies it.
type AccessStore interface {
	RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error)
	FindRoute(ctx context.Context, uri, method string) (model.Route, error)
	HasGrant(ctx context.Context, routeID uint64, roleIDs []uint64) (bool, error)
	RoutesForRole(ctx context.Context, roleID uint64) ([]model.Route, error)
}

// Resolver answers allow/deny for (user, route, method) and builds the
// bulk role-access summary. cache may be nil.
type Resolver struct {
	store AccessStore
	cache *DecisionCache
}

func NewResolver(store AccessStore, cache *DecisionCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Authorize returns nil when at least one of the user's roles holds a
// grant for the normalized route+method. The incoming uri must be the
// route template (parameter placeholders, not concrete values); it is
// lower-cased here to match the registry representation.
func (r *Resolver) Authorize(ctx context.Context, userID uint64, uri, method string) error {
	uri = strings.ToLower(uri)
	method = strings.ToUpper(method)

	if allowed, hit := r.cache.Get(ctx, userID, uri, method); hit {
		if allowed {
			return nil
		}
		return ErrForbidden
	}

	roles, err := r.store.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	roleIDs := make([]uint64, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}

	route, err := r.store.FindRoute(ctx, uri, method)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Unseeded route: deny, but do not cache — the gap should
			// surface on every request until fixed.
			return ErrRouteUnregistered
		}
		return err
	}

	allowed, err := r.store.HasGrant(ctx, route.ID, roleIDs)
	if err != nil {
		return err
	}
	r.cache.Set(ctx, userID, uri, method, allowed)
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// Summary builds the {role: {entity: [capabilities]}} map for every role
// the user holds. Used for introspection and admin UIs, never for
// per-request gating.
func (r *Resolver) Summary(ctx context.Context, userID uint64) (map[string]map[string][]string, error) {
	roles, err := r.store.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string][]string, len(roles))
	for _, role := range roles {
		routes, err := r.store.RoutesForRole(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		entities := make(map[string][]string)
		for _, rt := range routes {
			entity := EntityFromURI(rt.URI)
			if entity == "" {
				continue
			}
			capability := ClassifyCapability(rt.URI)
			if capability == "" {
				continue
			}
			if !contains(entities[entity], capability) {
				entities[entity] = append(entities[entity], capability)
			}
		}
		for _, caps := range entities {
			sort.Strings(caps)
		}
		out[role.Code] = entities
	}
	return out, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
