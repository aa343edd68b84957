package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queue-keeper/internal/config"
	"queue-keeper/internal/emitter"
	memoryqueue "queue-keeper/internal/queue/memory"
	storemem "queue-keeper/internal/store/memory"
)

func newEventServer(t *testing.T) (*Server, *memoryqueue.Queue) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	statics := storemem.NewStaticRepository()
	stores := storemem.NewStoreRepository()
	inbound := memoryqueue.NewQueue(time.Minute)
	t.Cleanup(func() { _ = inbound.Close() })

	server := NewServer(ServerDeps{
		Config:        &config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Logger:        logger,
		ConfigHandler: NewConfigHandler(statics, logger),
		QueueHandler:  NewQueueHandler(storemem.NewQueueRepository(stores, statics), statics, logger),
		EventHandler:  NewEventHandler(emitter.NewService(inbound, logger), logger),
	})
	return server, inbound
}

func postRaw(t *testing.T, s *Server, path, body string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestEvents_PublishesOnRoutingKey(t *testing.T) {
	server, inbound := newEventServer(t)

	status, body := postRaw(t, server, "/events/store-create-event",
		`{"id":"store-1","s_id":4,"name":"Harbour","alias":null,"company_id":"company-1"}`)
	require.Equal(t, http.StatusAccepted, status, string(body))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "store-1", resp["storeId"])
	assert.Equal(t, "store-create-event", resp["routingKey"])

	msg, err := inbound.Receive(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "store-create-event", msg.RoutingKey)
	assert.JSONEq(t, `{"id":"store-1","s_id":4,"name":"Harbour","alias":null,"company_id":"company-1"}`, string(msg.Body))
}

func TestEvents_RejectsUndecodableEvents(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"unknown routing key", "/events/store-delete-event", `{"id":"store-1"}`},
		{"invalid json", "/events/store-deactivate-event", `{"id":`},
		{"missing field", "/events/store-update-event", `{"id":"store-1"}`},
		{"wrong type", "/events/store-create-event", `{"id":"store-1","s_id":"7","name":"A","company_id":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, inbound := newEventServer(t)

			status, body := postRaw(t, server, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, detail(t, body))
			assert.Equal(t, 0, inbound.Len())
		})
	}
}

func TestEvents_NotMountedWithoutHandler(t *testing.T) {
	env := newTestEnv(t, true)

	status, _ := env.do(t, http.MethodPost, "/events/store-deactivate-event", map[string]string{"id": "store-1"})
	assert.Equal(t, http.StatusNotFound, status)
}
