package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-civic/agora/internal/platform/httpx"
)

func TestClientForwardsBearerTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Page[Announcement]{
			Items: []Announcement{{ID: "a1", Title: "Road closure"}},
			Total: 1, Page: 1, PerPage: 20,
		})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	page, err := client.ListAnnouncements(context.Background(), "opaque-token", 1)
	require.NoError(t, err)

	assert.Equal(t, "Bearer opaque-token", gotAuth)
	assert.Equal(t, "/v1/announcements", gotPath)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Road closure", page.Items[0].Title)
}

func TestClientMapsStatusesToSentinels(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, httpx.ErrNotFound},
		{http.StatusUnauthorized, httpx.ErrUnauthorized},
		{http.StatusForbidden, httpx.ErrForbidden},
		{http.StatusConflict, httpx.ErrDuplicate},
		{http.StatusBadRequest, httpx.ErrValidation},
		{http.StatusUnprocessableEntity, httpx.ErrValidation},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))
		client := New(srv.URL, time.Second)
		_, err := client.GetAnnouncement(context.Background(), "t", "a1")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.ErrorContains(t, err, "nope", "backend message is preserved")
		srv.Close()
	}
}

func TestClientUnexpectedStatusIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	_, err := client.GetAnnouncement(context.Background(), "t", "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, httpx.ErrNotFound)
	assert.ErrorContains(t, err, "502")
}

func TestClientSendsJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"p1","title":"Fix the bridge"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	petition, err := client.CreatePetition(context.Background(), "t", PetitionInput{Title: "Fix the bridge"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Fix the bridge", gotBody["title"])
	assert.Equal(t, "p1", petition.ID)
}

func TestClientNoContentNeedsNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	assert.NoError(t, client.SignPetition(context.Background(), "t", "p1"))
}

func TestListQueryPagination(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"items":[],"total":0,"page":3,"per_page":20}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	_, err := client.ListEvents(context.Background(), "t", 3)
	require.NoError(t, err)
	assert.Equal(t, "page=3", gotQuery)

	_, err = client.ListEvents(context.Background(), "t", 1)
	require.NoError(t, err)
	assert.Empty(t, gotQuery, "first page sends no query")
}
