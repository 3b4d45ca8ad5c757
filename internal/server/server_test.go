package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/server/sqlite"
)

type testServer struct {
	*Server
	api   humatest.TestAPI
	store *sqlite.Store
}

func setupTestServer(t *testing.T, allowDefaultUser bool) *testServer {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens, err := auth.NewTokenService(strings.Repeat("ab", 32), 24*time.Hour, 30*24*time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:             "0",
			AllowDefaultUser: allowDefaultUser,
		},
	}

	s := NewServer(cfg, st, tokens, nil)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		store:  st,
	}
}

func decodeBody[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestStatusEndpoint(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Get("/api/status")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody[StatusResponse](t, resp.Body.Bytes())
	assert.Equal(t, "online", body.Status)
	assert.NotEmpty(t, body.Timestamp)
}

func TestUnauthenticatedFallsBackToDefaultUser(t *testing.T) {
	ts := setupTestServer(t, true)

	// No Authorization header at all.
	resp := ts.api.Get("/api/items")
	require.Equal(t, http.StatusOK, resp.Code)

	items := decodeBody[[]domain.Item](t, resp.Body.Bytes())
	assert.Empty(t, items)
}

func TestUnauthenticatedRejectedWhenFlagOff(t *testing.T) {
	ts := setupTestServer(t, false)

	resp := ts.api.Get("/api/items")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateItemReturnsFullItem(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Post("/api/items", map[string]any{
		"title": "Documentação Go",
		"type":  "link",
		"url":   "https://go.dev/doc",
		"tags":  []string{"golang"},
		"preview": map[string]any{
			"title": "Go docs",
			"image": "https://go.dev/og.png",
		},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	it := decodeBody[domain.Item](t, resp.Body.Bytes())
	assert.True(t, strings.HasPrefix(it.ID, "item_"), "got id %q", it.ID)
	assert.Equal(t, domain.TypeLink, it.Type)
	assert.Equal(t, domain.DefaultCollectionID, it.Collection)
	require.NotNil(t, it.Preview)
	assert.Equal(t, "Go docs", it.Preview.Title)
	assert.Equal(t, []string{"golang"}, it.Tags)
}

func TestListItemsIsFlatArray(t *testing.T) {
	ts := setupTestServer(t, true)

	ts.api.Post("/api/items", map[string]any{"title": "A", "type": "note"})
	ts.api.Post("/api/items", map[string]any{"title": "B", "type": "note"})

	resp := ts.api.Get("/api/items")
	require.Equal(t, http.StatusOK, resp.Code)

	// The historical wire shape is a bare array, not an envelope.
	trimmed := strings.TrimSpace(resp.Body.String())
	assert.True(t, strings.HasPrefix(trimmed, "["), "expected flat array, got %s", trimmed)

	items := decodeBody[[]domain.Item](t, resp.Body.Bytes())
	assert.Len(t, items, 2)
}

func TestUpdateItemPartial(t *testing.T) {
	ts := setupTestServer(t, true)

	created := decodeBody[domain.Item](t, ts.api.Post("/api/items", map[string]any{
		"title":   "Original",
		"type":    "note",
		"content": "conteúdo",
	}).Body.Bytes())

	resp := ts.api.Put("/api/items/"+created.ID, map[string]any{
		"title": "Renomeado",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	it := decodeBody[domain.Item](t, resp.Body.Bytes())
	assert.Equal(t, "Renomeado", it.Title)
	assert.Equal(t, "conteúdo", it.Content)
}

func TestUpdateItemNullPreviewClears(t *testing.T) {
	ts := setupTestServer(t, true)

	created := decodeBody[domain.Item](t, ts.api.Post("/api/items", map[string]any{
		"title":   "Link",
		"type":    "link",
		"url":     "https://exemplo.com",
		"preview": map[string]any{"title": "Exemplo"},
	}).Body.Bytes())
	require.NotNil(t, created.Preview)

	// An update without the preview key keeps it.
	it := decodeBody[domain.Item](t, ts.api.Put("/api/items/"+created.ID, map[string]any{
		"title": "Link renomeado",
	}).Body.Bytes())
	assert.NotNil(t, it.Preview)

	// An explicit null clears it.
	it = decodeBody[domain.Item](t, ts.api.Put("/api/items/"+created.ID, map[string]any{
		"preview": nil,
	}).Body.Bytes())
	assert.Nil(t, it.Preview)
}

func TestUpdateItemCollectionIDWireName(t *testing.T) {
	ts := setupTestServer(t, true)

	created := decodeBody[domain.Item](t, ts.api.Post("/api/items", map[string]any{
		"title": "Movível", "type": "note",
	}).Body.Bytes())

	it := decodeBody[domain.Item](t, ts.api.Put("/api/items/"+created.ID, map[string]any{
		"collectionId": "col_trabalho",
	}).Body.Bytes())
	assert.Equal(t, "col_trabalho", it.Collection)
}

func TestDeleteItemThen404(t *testing.T) {
	ts := setupTestServer(t, true)

	created := decodeBody[domain.Item](t, ts.api.Post("/api/items", map[string]any{
		"title": "Descartável", "type": "note",
	}).Body.Bytes())

	resp := ts.api.Delete("/api/items/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Delete("/api/items/" + created.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "Item não encontrado")
}

func TestCreateCollectionItemEnvelope(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Post("/api/collections/col_x/items", map[string]any{
		"title": "Na coleção",
		"type":  "note",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var out struct {
		Item    domain.Item `json:"item"`
		Message string      `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "col_x", out.Item.Collection)
	assert.NotEmpty(t, out.Item.ID)

	// And the scoped listing returns it.
	listResp := ts.api.Get("/api/collections/col_x/items")
	require.Equal(t, http.StatusOK, listResp.Code)
	items := decodeBody[[]domain.Item](t, listResp.Body.Bytes())
	require.Len(t, items, 1)
	assert.Equal(t, "Na coleção", items[0].Title)
}

func TestRegisterLoginCheckFlow(t *testing.T) {
	ts := setupTestServer(t, false)

	regResp := ts.api.Post("/api/auth/register", map[string]any{
		"name":     "Maria",
		"email":    "maria@exemplo.com",
		"password": "segredo123",
	})
	require.Equal(t, http.StatusOK, regResp.Code, regResp.Body.String())

	reg := decodeBody[AuthResponse](t, regResp.Body.Bytes())
	assert.NotEmpty(t, reg.Token)
	assert.NotEmpty(t, reg.RefreshToken)
	assert.Equal(t, int64(24*60*60), reg.ExpiresIn)
	assert.Equal(t, "Maria", reg.User.Name)

	loginResp := ts.api.Post("/api/auth/login", map[string]any{
		"email":    "maria@exemplo.com",
		"password": "segredo123",
	})
	require.Equal(t, http.StatusOK, loginResp.Code)
	login := decodeBody[AuthResponse](t, loginResp.Body.Bytes())

	checkResp := ts.api.Get("/api/auth/check", "Authorization: Bearer "+login.Token)
	require.Equal(t, http.StatusOK, checkResp.Code)

	var check struct {
		IsAuthenticated bool        `json:"isAuthenticated"`
		User            domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(checkResp.Body.Bytes(), &check))
	assert.True(t, check.IsAuthenticated)
	assert.Equal(t, "maria@exemplo.com", check.User.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := setupTestServer(t, false)

	resp := ts.api.Post("/api/auth/login", map[string]any{
		"email":    sqlite.DefaultUserEmail,
		"password": "senha-errada",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Credenciais inválidas")
}

func TestLoginRateLimited(t *testing.T) {
	ts := setupTestServer(t, false)

	var last int
	for i := 0; i < 10; i++ {
		resp := ts.api.Post("/api/auth/login", map[string]any{
			"email":    sqlite.DefaultUserEmail,
			"password": "senha-errada",
		})
		last = resp.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRefreshRotatesToken(t *testing.T) {
	ts := setupTestServer(t, false)

	login := decodeBody[AuthResponse](t, ts.api.Post("/api/auth/login", map[string]any{
		"email":    sqlite.DefaultUserEmail,
		"password": "senha123",
	}).Body.Bytes())

	refreshResp := ts.api.Post("/api/auth/refresh", map[string]any{
		"refreshToken": login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, refreshResp.Code, refreshResp.Body.String())
	refreshed := decodeBody[AuthResponse](t, refreshResp.Body.Bytes())
	assert.NotEmpty(t, refreshed.Token)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed refresh token is gone.
	again := ts.api.Post("/api/auth/refresh", map[string]any{
		"refreshToken": login.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, again.Code)
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	ts := setupTestServer(t, false)

	login := decodeBody[AuthResponse](t, ts.api.Post("/api/auth/login", map[string]any{
		"email":    sqlite.DefaultUserEmail,
		"password": "senha123",
	}).Body.Bytes())

	resp := ts.api.Post("/api/auth/change-password",
		"Authorization: Bearer "+login.Token,
		map[string]any{
			"currentPassword": "senha123",
			"newPassword":     "senha456",
		})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Old refresh token no longer works.
	again := ts.api.Post("/api/auth/refresh", map[string]any{
		"refreshToken": login.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, again.Code)

	// New password works.
	relogin := ts.api.Post("/api/auth/login", map[string]any{
		"email":    sqlite.DefaultUserEmail,
		"password": "senha456",
	})
	assert.Equal(t, http.StatusOK, relogin.Code)
}

func TestUpdateProfile(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Put("/api/auth/profile", map[string]any{
		"name": "Nome Atualizado",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		User domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "Nome Atualizado", out.User.Name)
}

func TestCollectionRoutes(t *testing.T) {
	ts := setupTestServer(t, true)

	created := decodeBody[domain.Collection](t, ts.api.Post("/api/collections", map[string]any{
		"name": "Trabalho",
		"icon": "briefcase",
	}).Body.Bytes())
	assert.Equal(t, "briefcase", created.Icon)

	// Empty name rejected.
	bad := ts.api.Post("/api/collections", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	updated := decodeBody[domain.Collection](t, ts.api.Put("/api/collections/"+created.ID, map[string]any{
		"name": "Projetos",
	}).Body.Bytes())
	assert.Equal(t, "Projetos", updated.Name)
	assert.Equal(t, "briefcase", updated.Icon)

	// Deleting the collection reassigns items instead of deleting them.
	item := decodeBody[domain.Item](t, ts.api.Post("/api/items", map[string]any{
		"title": "Ata", "type": "note", "collectionId": created.ID,
	}).Body.Bytes())

	resp := ts.api.Delete("/api/collections/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeBody[domain.Item](t, ts.api.Get("/api/items/"+item.ID).Body.Bytes())
	assert.Equal(t, domain.DefaultCollectionID, got.Collection)
}

func TestTagRoutes(t *testing.T) {
	ts := setupTestServer(t, true)

	tag := decodeBody[domain.Tag](t, ts.api.Post("/api/tags", map[string]any{
		"name":  "importante",
		"color": "text-red-500",
	}).Body.Bytes())
	assert.NotEmpty(t, tag.ID)

	item := decodeBody[domain.Item](t, ts.api.Post("/api/items", map[string]any{
		"title": "Marcado", "type": "note",
	}).Body.Bytes())

	resp := ts.api.Post("/api/tags/items/"+item.ID+"/tags/"+tag.ID, map[string]any{})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	// Listing reflects the count and the item carries the tag name.
	tags := decodeBody[[]domain.Tag](t, ts.api.Get("/api/tags").Body.Bytes())
	require.Len(t, tags, 1)
	assert.Equal(t, 1, tags[0].Count)

	items := decodeBody[[]domain.Item](t, ts.api.Get("/api/tags/"+tag.ID+"/items").Body.Bytes())
	require.Len(t, items, 1)
	assert.Equal(t, []string{"importante"}, items[0].Tags)

	resp = ts.api.Delete("/api/tags/items/" + item.ID + "/tags/" + tag.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	items = decodeBody[[]domain.Item](t, ts.api.Get("/api/tags/"+tag.ID+"/items").Body.Bytes())
	assert.Empty(t, items)
}

func TestErrorBodyCarriesLegacyField(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Get("/api/items/item_ghost")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Message)
	assert.Equal(t, payload.Message, payload.Error)
}
