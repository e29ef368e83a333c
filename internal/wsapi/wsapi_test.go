package wsapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/dlsync/internal/backend/backendmock"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/store"
	"github.com/slok/dlsync/internal/wsapi"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{Backend: backendmock.NewMockBackend(t), PollInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newServer(t *testing.T, s *store.Store, origins []string) *httptest.Server {
	t.Helper()
	h, err := wsapi.NewHandler(wsapi.HandlerConfig{Source: s, AllowedOrigins: origins})
	require.NoError(t, err)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
}

func TestNewHandlerInvalidConfig(t *testing.T) {
	_, err := wsapi.NewHandler(wsapi.HandlerConfig{})
	assert.Error(t, err)
}

func TestHandlerPushesSnapshots(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newStore(t)
	srv := newServer(t, s, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Current snapshot first.
	var snap store.Snapshot
	require.NoError(conn.ReadJSON(&snap))
	assert.Empty(snap.ActiveTasks)

	s.ApplyActiveTasks(1, []model.Task{{ID: "t1", Status: model.TaskStatusDownloading}})

	require.NoError(conn.ReadJSON(&snap))
	assert.Equal([]model.Task{{ID: "t1", Status: model.TaskStatusDownloading}}, snap.ActiveTasks)
}

func TestHandlerClosesOnStoreClose(t *testing.T) {
	require := require.New(t)

	s := newStore(t)
	srv := newServer(t, s, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap store.Snapshot
	require.NoError(conn.ReadJSON(&snap))

	s.Close()

	_, _, err = conn.ReadMessage()
	require.Error(err)
	require.True(websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestHandlerCheckOrigin(t *testing.T) {
	tests := map[string]struct {
		origins []string
		origin  string
		expOK   bool
	}{
		"No origin header should be allowed.": {
			origin: "",
			expOK:  true,
		},

		"Origin without allow list should be rejected.": {
			origin: "http://evil.example.com",
			expOK:  false,
		},

		"Allowed origin should be accepted.": {
			origins: []string{"http://localhost:3000"},
			origin:  "HTTP://LOCALHOST:3000",
			expOK:   true,
		},

		"Wildcard should accept any origin.": {
			origins: []string{"*"},
			origin:  "http://other.example.com",
			expOK:   true,
		},

		"Not allowed origin should be rejected.": {
			origins: []string{"http://localhost:3000"},
			origin:  "http://other.example.com",
			expOK:   false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			srv := newServer(t, newStore(t), test.origins)

			header := http.Header{}
			if test.origin != "" {
				header.Set("Origin", test.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
			if test.expOK {
				assert.NoError(err)
				conn.Close()
				return
			}
			assert.Error(err)
			if resp != nil {
				assert.Equal(http.StatusForbidden, resp.StatusCode)
			}
		})
	}
}

func TestHandlerSnapshotEndpoint(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newStore(t)
	s.ApplyActiveTasks(1, []model.Task{{ID: "t1"}})
	srv := newServer(t, s, nil)

	resp, err := http.Get(srv.URL + "/api/snapshot")
	require.NoError(err)
	defer resp.Body.Close()

	assert.Equal(http.StatusOK, resp.StatusCode)
	var snap store.Snapshot
	require.NoError(json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal([]model.Task{{ID: "t1"}}, snap.ActiveTasks)
	assert.Equal(1, snap.ActiveTasksCount())
}
