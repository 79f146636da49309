package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orghub-backend/internal/auth"
	"orghub-backend/internal/authz"
	"orghub-backend/internal/models"
	"orghub-backend/internal/storage"
)

// fakeStore backs the full router in tests. It satisfies the handlers,
// authz and auth store interfaces so register/login and the /api routes
// share one state.
type fakeStore struct {
	users   map[string]*models.User         // by id
	byEmail map[string]*models.User         // by email
	orgs    map[string]*models.Organisation // by id
	orgIDs  []string                        // insertion order
	members map[string][]string             // org id -> member user ids
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
		orgs:    make(map[string]*models.Organisation),
		members: make(map[string][]string),
	}
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeStore) RegisterUser(_ context.Context, user *models.User, org *models.Organisation) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return storage.ErrEmailTaken
	}
	f.users[user.ID] = user
	f.byEmail[user.Email] = user
	f.putOrg(org)
	f.members[org.ID] = append(f.members[org.ID], user.ID)
	return nil
}

func (f *fakeStore) GetOrganisation(_ context.Context, id string) (*models.Organisation, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, storage.ErrOrgNotFound
	}
	return org, nil
}

func (f *fakeStore) CreateOrganisation(_ context.Context, org *models.Organisation) error {
	f.putOrg(org)
	return nil
}

func (f *fakeStore) putOrg(org *models.Organisation) {
	f.orgs[org.ID] = org
	f.orgIDs = append(f.orgIDs, org.ID)
}

func (f *fakeStore) AddMember(_ context.Context, m models.Membership) error {
	for _, id := range f.members[m.OrgID] {
		if id == m.UserID {
			return nil
		}
	}
	f.members[m.OrgID] = append(f.members[m.OrgID], m.UserID)
	return nil
}

func (f *fakeStore) IsMember(_ context.Context, userID, orgID string) (bool, error) {
	for _, id := range f.members[orgID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) HasCreatedOrgWithMember(ctx context.Context, creatorID, memberID string) (bool, error) {
	for _, orgID := range f.orgIDs {
		if f.orgs[orgID].CreatorID != creatorID {
			continue
		}
		if ok, _ := f.IsMember(ctx, memberID, orgID); ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) OrganisationsCreatedBy(_ context.Context, userID string) ([]models.Organisation, error) {
	out := make([]models.Organisation, 0)
	for _, orgID := range f.orgIDs {
		if f.orgs[orgID].CreatorID == userID {
			out = append(out, *f.orgs[orgID])
		}
	}
	return out, nil
}

func (f *fakeStore) OrganisationsWithMember(ctx context.Context, userID string) ([]models.Organisation, error) {
	out := make([]models.Organisation, 0)
	for _, orgID := range f.orgIDs {
		if ok, _ := f.IsMember(ctx, userID, orgID); ok {
			out = append(out, *f.orgs[orgID])
		}
	}
	return out, nil
}

func newTestRouter(store *fakeStore) (*chi.Mux, *auth.TokenService) {
	tokens := auth.NewTokenService([]byte("test-secret"))
	authHandler := auth.NewHandler(store, tokens)
	apiHandler := New(store, authz.NewEngine(store))

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		apiHandler.RegisterRoutes(r)
	})
	return r, tokens
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func register(t *testing.T, router http.Handler, firstName, email string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"firstName": firstName,
		"lastName":  "Tester",
		"email":     email,
		"password":  "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func createOrg(t *testing.T, router http.Handler, token, name string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/organisations", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			OrgID string `json:"orgId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.OrgID
}

func TestOrganisationAccess_EndToEnd(t *testing.T) {
	store := newFakeStore()
	router, tokens := newTestRouter(store)

	aliceToken := register(t, router, "Alice", "alice@x.com")
	bobToken := register(t, router, "Bob", "bob@x.com")

	aliceID, err := tokens.Verify(aliceToken)
	require.NoError(t, err)
	require.NotNil(t, store.users[aliceID])

	orgID := createOrg(t, router, aliceToken, "Org1")

	// Bob has no relation to Org1.
	w := do(t, router, http.MethodGet, "/api/organisations/"+orgID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied")

	// Alice created it.
	w = do(t, router, http.MethodGet, "/api/organisations/"+orgID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Org1")
}

func TestGetOrganisation_NotFoundBeforeAccessCheck(t *testing.T) {
	store := newFakeStore()
	router, _ := newTestRouter(store)
	token := register(t, router, "Alice", "alice@x.com")

	w := do(t, router, http.MethodGet, "/api/organisations/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Organisation not found")
}

func TestListOrganisations_NoDuplicatesForCreatorMember(t *testing.T) {
	store := newFakeStore()
	router, _ := newTestRouter(store)

	// Registration makes Alice creator and member of her default org.
	token := register(t, router, "Alice", "alice@x.com")

	w := do(t, router, http.MethodGet, "/api/organisations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Organisations []struct {
				OrgID string `json:"orgId"`
				Name  string `json:"name"`
			} `json:"organisations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Organisations, 1)
	assert.Equal(t, "Alice's Organisation", resp.Data.Organisations[0].Name)
}

func TestMyOrganisations(t *testing.T) {
	store := newFakeStore()
	router, tokens := newTestRouter(store)
	token := register(t, router, "Alice", "alice@x.com")

	w := do(t, router, http.MethodGet, "/api/my-organisations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var orgs []models.Organisation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orgs))
	require.Len(t, orgs, 1)
	assert.Equal(t, "Alice's Organisation", orgs[0].Name)

	// A token for an id with no user record yields 404, not 500.
	ghost, err := tokens.Issue("no-such-user")
	require.NoError(t, err)
	w = do(t, router, http.MethodGet, "/api/my-organisations", ghost, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
}

func TestAddOrganisationMember(t *testing.T) {
	store := newFakeStore()
	router, tokens := newTestRouter(store)

	aliceToken := register(t, router, "Alice", "alice@x.com")
	bobToken := register(t, router, "Bob", "bob@x.com")
	bobID, err := tokens.Verify(bobToken)
	require.NoError(t, err)

	orgID := createOrg(t, router, aliceToken, "Org1")

	// Only the creator may add members.
	w := do(t, router, http.MethodPost, "/api/organisations/"+orgID+"/users", bobToken,
		map[string]string{"userId": bobID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Missing userId is a validation failure.
	w = do(t, router, http.MethodPost, "/api/organisations/"+orgID+"/users", aliceToken,
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"userId"`)

	// Unknown organisation and unknown user are 404s.
	w = do(t, router, http.MethodPost, "/api/organisations/nope/users", aliceToken,
		map[string]string{"userId": bobID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/organisations/"+orgID+"/users", aliceToken,
		map[string]string{"userId": "no-such-user"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")

	// The creator adds Bob; Bob can then see the organisation.
	w = do(t, router, http.MethodPost, "/api/organisations/"+orgID+"/users", aliceToken,
		map[string]string{"userId": bobID})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/organisations/"+orgID, bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Re-adding is a no-op, not an error.
	w = do(t, router, http.MethodPost, "/api/organisations/"+orgID+"/users", aliceToken,
		map[string]string{"userId": bobID})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.members[orgID], 1)
}

func TestGetUser_AccessRules(t *testing.T) {
	store := newFakeStore()
	router, tokens := newTestRouter(store)

	aliceToken := register(t, router, "Alice", "alice@x.com")
	bobToken := register(t, router, "Bob", "bob@x.com")
	aliceID, err := tokens.Verify(aliceToken)
	require.NoError(t, err)
	bobID, err := tokens.Verify(bobToken)
	require.NoError(t, err)

	// Self lookup.
	w := do(t, router, http.MethodGet, "/api/users/"+bobID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bob@x.com")

	// Strangers are denied.
	w = do(t, router, http.MethodGet, "/api/users/"+aliceID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown user is 404 before any access decision.
	w = do(t, router, http.MethodGet, "/api/users/no-such-user", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Once Bob joins Alice's organisation, Alice may view him.
	orgID := createOrg(t, router, aliceToken, "Org1")
	w = do(t, router, http.MethodPost, "/api/organisations/"+orgID+"/users", aliceToken,
		map[string]string{"userId": bobID})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/users/"+bobID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bob@x.com")
	// Membership is not symmetric: Bob still cannot view Alice.
	w = do(t, router, http.MethodGet, "/api/users/"+aliceID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoute(t *testing.T) {
	store := newFakeStore()
	router, _ := newTestRouter(store)

	w := do(t, router, http.MethodGet, "/api/protected", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := register(t, router, "Alice", "alice@x.com")
	w = do(t, router, http.MethodGet, "/api/protected", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "This is a protected route", w.Body.String())
}
