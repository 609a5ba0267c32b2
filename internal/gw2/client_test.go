package gw2

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestTokenInfo(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokeninfo", r.URL.Path)
		assert.Equal(t, "Bearer SECRET", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"abc","name":"My Key","permissions":["account","guilds"]}`))
	})

	info, err := c.TokenInfo(context.Background(), "SECRET")
	require.NoError(t, err)
	assert.Equal(t, "My Key", info.Name)
	assert.Equal(t, []string{"account", "guilds"}, info.Permissions)
}

func TestDoJSONErrorMapping(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}
	})

	err := c.doJSON(context.Background(), "/forbidden", "key", nil, &struct{}{})
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = c.doJSON(context.Background(), "/missing", "", nil, &struct{}{})
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.doJSON(context.Background(), "/other", "", nil, &struct{}{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Body)
}

func TestSearchGuild(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guild/search", r.URL.Path)
		assert.Equal(t, "The Unquiet", r.URL.Query().Get("name"))
		w.Write([]byte(`["4BBB52AA-D768-4FC6-8EDE-C299F2822F0F"]`))
	})

	ids, err := c.SearchGuild(context.Background(), "The Unquiet")
	require.NoError(t, err)
	assert.Equal(t, []string{"4BBB52AA-D768-4FC6-8EDE-C299F2822F0F"}, ids)
}

func TestGuildLogKeepsRawEntries(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123", r.URL.Query().Get("since"))
		w.Write([]byte(`[
			{"id":125,"time":"2025-08-20T10:00:00Z","type":"joined","user":"Player.1234"},
			{"id":124,"time":"2025-08-19T10:00:00Z","type":"kick","user":"Other.5678","kicked_by":"Leader.0001"}
		]`))
	})

	entries, err := c.GuildLog(context.Background(), "key", "guild-id", 123)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(125), entries[0].ID)
	assert.Equal(t, "joined", entries[0].Type)
	assert.Contains(t, string(entries[1].Raw), "kicked_by")
}

func TestWvWGuildWorldsLowercasesIDs(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wvw/guilds/na":
			w.Write([]byte(`{"4BBB52AA-D768-4FC6-8EDE-C299F2822F0F":11002}`))
		case "/wvw/guilds/eu":
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mapped, err := c.WvWGuildWorlds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11002, mapped["4bbb52aa-d768-4fc6-8ede-c299f2822f0f"])
}
