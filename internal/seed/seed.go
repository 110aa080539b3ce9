// Package seed loads the versioned route-permission fixture into the
// database. The fixture is data, not code: granting a role access to a
// route is an edit to seed/access.json, reviewed and shipped like any
// other change.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Store is the slice of the access repository the loader needs.
// *repository.AccessRepo satisfies it.
type Store interface {
	EnsureRole(ctx context.Context, code, name string, weight int) (uint64, error)
	EnsureRoute(ctx context.Context, uri, method string) (uint64, error)
	GrantRoute(ctx context.Context, routeID, roleID uint64) error
}

// Fixture is the on-disk shape of seed/access.json.
type Fixture struct {
	Roles  []RoleSeed  `json:"roles"`
	Routes []RouteSeed `json:"routes"`
}

type RoleSeed struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

type RouteSeed struct {
	URI    string   `json:"uri"`
	Method string   `json:"method"`
	Roles  []string `json:"roles"`
}

// Load reads the fixture and upserts roles, the route registry and the
// route grants. Every write is idempotent, so Load runs on each startup.
func Load(ctx context.Context, store Store, path string, log *logrus.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse seed fixture: %w", err)
	}

	roleIDs := make(map[string]uint64, len(fx.Roles))
	for _, r := range fx.Roles {
		id, err := store.EnsureRole(ctx, r.Code, r.Name, r.Weight)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.Code, err)
		}
		roleIDs[r.Code] = id
	}

	grants := 0
	for _, rt := range fx.Routes {
		routeID, err := store.EnsureRoute(ctx, rt.URI, rt.Method)
		if err != nil {
			return fmt.Errorf("seed route %s %s: %w", rt.Method, rt.URI, err)
		}
		for _, code := range rt.Roles {
			roleID, ok := roleIDs[code]
			if !ok {
				return fmt.Errorf("route %s %s references unknown role %s", rt.Method, rt.URI, code)
			}
			if err := store.GrantRoute(ctx, routeID, roleID); err != nil {
				return fmt.Errorf("grant %s on %s %s: %w", code, rt.Method, rt.URI, err)
			}
			grants++
		}
	}

	log.WithFields(logrus.Fields{
		"roles":  len(fx.Roles),
		"routes": len(fx.Routes),
		"grants": grants,
	}).Info("access fixture loaded")
	return nil
}
