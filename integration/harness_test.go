package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/gomega"

	"queue-keeper/internal/api"
	"queue-keeper/internal/config"
	"queue-keeper/internal/deadletter"
	"queue-keeper/internal/emitter"
	"queue-keeper/internal/processor"
	"queue-keeper/internal/queue"
	memoryqueue "queue-keeper/internal/queue/memory"
	"queue-keeper/internal/seed"
	storemem "queue-keeper/internal/store/memory"
)

// harness wires the service the way cmd/queue-keeper does in memory mode.
type harness struct {
	inbound    *memoryqueue.Queue
	deadLetter *memoryqueue.Queue
	stores     *storemem.StoreRepository
	queues     *storemem.QueueRepository
	poller     *queue.Poller
	emitter    *emitter.Service
	server     *api.Server
}

type harnessOptions struct {
	deadLetter  bool
	maxReceives int
}

func newHarness(opts harnessOptions) *harness {
	ctx := context.Background()
	logger := discardLogger()

	statics := storemem.NewStaticRepository()
	stores := storemem.NewStoreRepository()
	queues := storemem.NewQueueRepository(stores, statics)
	Expect(seed.Statics(ctx, statics, logger)).To(Succeed())

	h := &harness{
		inbound:    memoryqueue.NewQueue(time.Minute),
		deadLetter: memoryqueue.NewQueue(time.Minute),
		stores:     stores,
		queues:     queues,
	}

	var sink queue.DeadLetterSink
	if opts.deadLetter {
		sink = deadletter.NewPublisherSink(h.deadLetter, logger)
	}

	service := processor.NewService(processor.NewApplier(stores, logger), logger)
	h.poller = queue.NewPoller(h.inbound, service.HandleMessage, sink, queue.PollerConfig{
		WaitTime:     10 * time.Millisecond,
		PollInterval: time.Millisecond,
		MaxReceives:  opts.maxReceives,
	}, logger)

	h.emitter = emitter.NewService(h.inbound, logger)
	h.server = api.NewServer(api.ServerDeps{
		Config:        &config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Logger:        logger,
		ConfigHandler: api.NewConfigHandler(statics, logger),
		QueueHandler:  api.NewQueueHandler(queues, statics, logger),
		EventHandler:  api.NewEventHandler(h.emitter, logger),
	})

	return h
}

// doRequest performs an in-process HTTP request and returns the status and body.
func (h *harness) doRequest(method, path string, body interface{}) (int, []byte) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		bodyReader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.server.App().Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

// postRaw sends a raw body in-process and returns the status.
func (h *harness) postRaw(path, body string) int {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.server.App().Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	return resp.StatusCode
}

// publishRaw puts a message on the inbound queue without validation.
func (h *harness) publishRaw(routingKey, body string) {
	Expect(h.inbound.Publish(context.Background(), routingKey, []byte(body))).To(Succeed())
}

// parseResponse parses a JSON body into target.
func parseResponse(body []byte, target interface{}) {
	ExpectWithOffset(1, json.Unmarshal(body, target)).To(Succeed())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
