package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbase/auth-service/internal/auth"
	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/rbac"
	"github.com/marketbase/auth-service/internal/repository"
)

// memSessions is an in-memory auth.SessionStore.
type memSessions struct {
	byToken map[string]*model.SessionToken
}

func (s *memSessions) Create(_ context.Context, userID uint64, token, platform string, expiresAt time.Time) error {
	s.byToken[token] = &model.SessionToken{UserID: userID, Token: token, Platform: platform, ExpiresAt: expiresAt}
	return nil
}

func (s *memSessions) Find(_ context.Context, token string) (model.SessionToken, error) {
	st, ok := s.byToken[token]
	if !ok {
		return model.SessionToken{}, repository.ErrNotFound
	}
	return *st, nil
}

func (s *memSessions) Revoke(_ context.Context, token string) error {
	if st, ok := s.byToken[token]; ok && st.RevokedAt == nil {
		now := time.Now()
		st.RevokedAt = &now
	}
	return nil
}

// memUsers is a UserLoader over a fixed set of users.
type memUsers map[uint64]model.User

func (m memUsers) FindActiveByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m[id]
	if !ok || !u.IsActive {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// memAccess is an rbac.AccessStore granting one role one route.
type memAccess struct {
	role  model.Role
	route model.Route
	grant bool
}

func (a *memAccess) RolesForUser(_ context.Context, _ uint64) ([]model.Role, error) {
	return []model.Role{a.role}, nil
}

func (a *memAccess) FindRoute(_ context.Context, uri, method string) (model.Route, error) {
	if uri == a.route.URI && method == a.route.Method {
		return a.route, nil
	}
	return model.Route{}, repository.ErrNotFound
}

func (a *memAccess) HasGrant(_ context.Context, routeID uint64, roleIDs []uint64) (bool, error) {
	return a.grant && routeID == a.route.ID && len(roleIDs) > 0, nil
}

func (a *memAccess) RoutesForRole(_ context.Context, _ uint64) ([]model.Route, error) {
	return []model.Route{a.route}, nil
}

type gateWorld struct {
	e      *echo.Echo
	issuer *auth.TokenIssuer
	access *memAccess
	user   model.User
}

// newGateWorld wires an echo app with one guarded route,
// GET /client/catalog/list, granted to CUSTOMER.
func newGateWorld(t *testing.T) *gateWorld {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	user := model.User{ID: 7, Username: "alice", UserType: model.UserTypeUser, IsActive: true}
	users := memUsers{7: user}

	sessions := &memSessions{byToken: make(map[string]*model.SessionToken)}
	issuer := auth.NewTokenIssuer(map[auth.Platform]auth.PlatformKey{
		auth.PlatformClient: {Secret: "client-secret", TTL: time.Hour},
	}, sessions)

	access := &memAccess{
		role:  model.Role{ID: 4, Code: "CUSTOMER", Weight: 40},
		route: model.Route{ID: 1, URI: "/client/catalog/list", Method: "GET"},
		grant: true,
	}
	resolver := rbac.NewResolver(access, nil)

	e := echo.New()
	gate := Authorize(issuer, users, resolver, auth.PlatformClient, log)
	e.GET("/client/catalog/list", func(c echo.Context) error {
		u := c.Get(CtxUser).(model.User)
		return c.JSON(http.StatusOK, echo.Map{"user": u.Username})
	}, gate)
	e.GET("/client/invoice/list", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, gate)

	return &gateWorld{e: e, issuer: issuer, access: access, user: user}
}

func (w *gateWorld) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	w.e.ServeHTTP(rec, req)
	return rec
}

func TestGateMissingBearer(t *testing.T) {
	w := newGateWorld(t)

	rec := w.get("/client/catalog/list", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestGateGarbageToken(t *testing.T) {
	w := newGateWorld(t)

	rec := w.get("/client/catalog/list", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateGrantedRequestPasses(t *testing.T) {
	w := newGateWorld(t)
	issued, err := w.issuer.Issue(context.Background(), w.user, auth.PlatformClient)
	require.NoError(t, err)

	rec := w.get("/client/catalog/list", issued.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestGateRevokedToken(t *testing.T) {
	w := newGateWorld(t)
	issued, err := w.issuer.Issue(context.Background(), w.user, auth.PlatformClient)
	require.NoError(t, err)
	require.NoError(t, w.issuer.Revoke(context.Background(), issued.Token))

	rec := w.get("/client/catalog/list", issued.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateMissingGrant(t *testing.T) {
	w := newGateWorld(t)
	w.access.grant = false
	issued, err := w.issuer.Issue(context.Background(), w.user, auth.PlatformClient)
	require.NoError(t, err)

	rec := w.get("/client/catalog/list", issued.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestGateUnregisteredRouteDenied(t *testing.T) {
	w := newGateWorld(t)
	issued, err := w.issuer.Issue(context.Background(), w.user, auth.PlatformClient)
	require.NoError(t, err)

	// The echo route exists but was never seeded into the registry.
	rec := w.get("/client/invoice/list", issued.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
