package portal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/guard"
	"github.com/agora-civic/agora/internal/shared"
	"github.com/agora-civic/agora/internal/view"
)

func pageOf[T any](items ...T) backend.Page[T] {
	return backend.Page[T]{Items: items, Total: len(items), Page: 1, PerPage: 20}
}

// portalBackend serves just enough of the backend API for the portal pages.
type portalBackend struct {
	signStatus  int
	signedIDs   []string
	lastCreated backend.PetitionInput
}

func (b *portalBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/announcements", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pageOf(backend.Announcement{ID: "a1", Title: "Water outage"}))
	})
	mux.HandleFunc("GET /v1/events", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pageOf(backend.Event{ID: "e1", Title: "Town hall"}))
	})
	mux.HandleFunc("GET /v1/petitions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pageOf(backend.Petition{ID: "p1", Title: "More bike lanes", Status: "open"}))
	})
	mux.HandleFunc("GET /v1/petitions/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(backend.Petition{ID: r.PathValue("id"), Title: "More bike lanes", Status: "open"})
	})
	mux.HandleFunc("POST /v1/petitions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&b.lastCreated)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(backend.Petition{ID: "p-new", Title: b.lastCreated.Title})
	})
	mux.HandleFunc("POST /v1/petitions/{id}/sign", func(w http.ResponseWriter, r *http.Request) {
		status := b.signStatus
		if status == 0 {
			status = http.StatusNoContent
		}
		if status < 400 {
			b.signedIDs = append(b.signedIDs, r.PathValue("id"))
		} else {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "already signed"})
			return
		}
		w.WriteHeader(status)
	})
	return mux
}

type portalFixture struct {
	router  chi.Router
	backend *portalBackend
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()
	stub := &portalBackend{}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	templates, err := view.NewEngine()
	require.NoError(t, err)
	codec := authn.NewTokenCodec("portal-test-secret", "agora_token", time.Hour, false)
	h := NewHandler(nil, backend.New(srv.URL, 5*time.Second), guard.New(codec, nil, nil, nil), templates, shared.NewCSRFManager("csrf-secret"))

	router := chi.NewRouter()
	router.Get("/", h.Dashboard)
	router.Get(guard.UnauthorizedPath, h.Unauthorized)
	h.MountRoutes(router)
	return &portalFixture{router: router, backend: stub}
}

func citizenClaims(role authz.Role) *authn.Claims {
	return &authn.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "citizen-1"},
		Email:            "citizen@example.org",
		RoleName:         role.String(),
		Permissions:      authz.Default().Effective(role),
		BackendToken:     "backend-token",
	}
}

func (f *portalFixture) do(t *testing.T, claims *authn.Claims, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if claims != nil {
		req = req.WithContext(authn.ContextWithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestDashboardAnonymousSeesLanding(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, nil, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Water outage")
}

func TestDashboardAggregatesFeeds(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, citizenClaims(authz.RoleUser), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Water outage")
	assert.Contains(t, body, "Town hall")
	assert.Contains(t, body, "More bike lanes")
}

func TestPetitionsRequireSignIn(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, nil, http.MethodGet, "/petitions", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/auth/login")
}

func TestPetitionsListRenders(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, citizenClaims(authz.RoleUser), http.MethodGet, "/petitions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "More bike lanes")
}

func TestCreatePetitionSubmits(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, citizenClaims(authz.RoleUser), http.MethodPost, "/petitions/new", url.Values{
		"title":    {"Car-free Sundays"},
		"body":     {"Close the waterfront to cars on Sundays."},
		"deadline": {"2026-12-01"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/petitions/p-new", rec.Header().Get("Location"))
	assert.Equal(t, "Car-free Sundays", f.backend.lastCreated.Title)
}

func TestCreatePetitionValidationRerenders(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, citizenClaims(authz.RoleUser), http.MethodPost, "/petitions/new", url.Values{
		"title":    {"x"},
		"body":     {""},
		"deadline": {"not-a-date"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.backend.lastCreated.Title, "invalid form must not reach the backend")
}

func TestSignPetition(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, citizenClaims(authz.RoleUser), http.MethodPost, "/petitions/p1/sign", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/petitions/p1", rec.Header().Get("Location"))
	assert.Equal(t, []string{"p1"}, f.backend.signedIDs)
}

func TestSignPetitionTwiceIsGraceful(t *testing.T) {
	f := newPortalFixture(t)
	f.backend.signStatus = http.StatusConflict

	rec := f.do(t, citizenClaims(authz.RoleUser), http.MethodPost, "/petitions/p1/sign", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/petitions/p1", rec.Header().Get("Location"))
	assert.Empty(t, f.backend.signedIDs)
}

func TestUnauthorizedPageIsForbidden(t *testing.T) {
	f := newPortalFixture(t)
	rec := f.do(t, nil, http.MethodGet, guard.UnauthorizedPath, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
