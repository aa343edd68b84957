package integration

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"queue-keeper/internal/api"
	"queue-keeper/internal/deadletter"
	"queue-keeper/internal/domain"
	"queue-keeper/internal/queue"
	"queue-keeper/internal/seed"
)

const storeID = "7e0c5a52-0000-4000-8000-000000000001"

func createdEvent() *domain.StoreCreated {
	return &domain.StoreCreated{
		ID:              storeID,
		DisplaySequence: 12,
		Name:            "Harbourfront",
		Alias:           domain.StringPtr("HF"),
		CompanyID:       "company-7",
	}
}

var _ = Describe("Store Sync", func() {
	var (
		h   *harness
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness(harnessOptions{})
	})

	Describe("Store lifecycle events", func() {
		It("should apply a create event and acknowledge the message", func() {
			Expect(h.emitter.Emit(ctx, createdEvent())).To(Succeed())

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateAcked))
			Expect(h.inbound.Len()).To(Equal(0))

			s, err := h.stores.GetByID(ctx, storeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name).To(Equal("Harbourfront"))
			Expect(s.DisplayID()).To(Equal("S12"))
			Expect(s.Deactivated).To(BeFalse())
		})

		It("should treat a redelivered identical create as success", func() {
			Expect(h.emitter.Emit(ctx, createdEvent())).To(Succeed())
			Expect(h.emitter.Emit(ctx, createdEvent())).To(Succeed())

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateAcked))
			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateAcked))
			Expect(h.inbound.Len()).To(Equal(0))
		})

		It("should apply create, update and deactivate in order", func() {
			Expect(h.emitter.Emit(ctx, createdEvent())).To(Succeed())
			Expect(h.emitter.Emit(ctx, &domain.StoreUpdated{ID: storeID, Name: "Harbourfront East"})).To(Succeed())
			Expect(h.emitter.Emit(ctx, &domain.StoreDeactivated{ID: storeID})).To(Succeed())

			for i := 0; i < 3; i++ {
				Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateAcked))
			}

			s, err := h.stores.GetByID(ctx, storeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name).To(Equal("Harbourfront East"))
			Expect(s.Alias).To(BeNil())
			Expect(s.Deactivated).To(BeTrue())
		})

		It("should release an update for a store that does not exist yet", func() {
			Expect(h.emitter.Emit(ctx, &domain.StoreUpdated{ID: storeID, Name: "Nowhere"})).To(Succeed())

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateReleased))
			Expect(h.inbound.Len()).To(Equal(1))

			// released messages are redelivered with a growing receive count
			msg, err := h.inbound.Receive(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).NotTo(BeNil())
			Expect(msg.ReceiveCount).To(Equal(2))
		})

		It("should keep releasing a malformed message when dead-lettering is off", func() {
			h.publishRaw(string(domain.RoutingKeyStoreCreate), `{"id": "x"`)

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateReleased))
			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateReleased))
			Expect(h.inbound.Len()).To(Equal(1))
		})

		It("should report an empty queue", func() {
			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateEmpty))
		})
	})

	Describe("Dead-lettering", func() {
		BeforeEach(func() {
			h = newHarness(harnessOptions{deadLetter: true, maxReceives: 2})
		})

		It("should dead-letter a malformed message at once", func() {
			h.publishRaw("store-rename-event", `{"id": "x"}`)

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateDeadLettered))
			Expect(h.inbound.Len()).To(Equal(0))
			Expect(h.deadLetter.Len()).To(Equal(1))

			msg, err := h.deadLetter.Receive(ctx, 0)
			Expect(err).NotTo(HaveOccurred())

			var env deadletter.Envelope
			parseResponse(msg.Body, &env)
			Expect(env.RoutingKey).To(Equal("store-rename-event"))
			Expect(env.FailureKind).To(Equal("decode"))
			Expect(env.ReceiveCount).To(Equal(1))
		})

		It("should dead-letter a missing-store update after max receives", func() {
			Expect(h.emitter.Emit(ctx, &domain.StoreDeactivated{ID: storeID})).To(Succeed())

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateReleased))
			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateDeadLettered))
			Expect(h.inbound.Len()).To(Equal(0))
			Expect(h.deadLetter.Len()).To(Equal(1))
		})
	})

	Describe("Running poller", func() {
		It("should drain the queue and stop on cancel", func() {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				defer GinkgoRecover()
				Expect(h.poller.Run(runCtx)).To(Succeed())
			}()

			Expect(h.emitter.Emit(ctx, createdEvent())).To(Succeed())
			Eventually(func() error {
				_, err := h.stores.GetByID(ctx, storeID)
				return err
			}, 2*time.Second, 10*time.Millisecond).Should(Succeed())
			Eventually(h.inbound.Len, time.Second, 10*time.Millisecond).Should(Equal(0))

			cancel()
			Eventually(done, time.Second).Should(BeClosed())
			Expect(h.poller.State()).To(Equal(queue.StateStopped))
		})
	})

	Describe("Queue API over synced stores", func() {
		BeforeEach(func() {
			Expect(h.emitter.Emit(ctx, createdEvent())).To(Succeed())
			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateAcked))
		})

		It("should create a queue once per store and type", func() {
			payload := map[string]interface{}{"queueType": "Virtual", "storeId": storeID}

			status, body := h.doRequest(http.MethodPost, "/queue/create", payload)
			Expect(status).To(Equal(http.StatusCreated))

			var created api.MessageResponse
			parseResponse(body, &created)
			Expect(created.StoreID).To(Equal(storeID))
			Expect(created.QueueType).To(Equal("Virtual"))

			status, body = h.doRequest(http.MethodPost, "/queue/create", payload)
			Expect(status).To(Equal(http.StatusBadRequest))

			var errResp api.ErrorResponse
			parseResponse(body, &errResp)
			Expect(errResp.Detail).To(Equal("Virtual queue already exists for store " + storeID))
		})

		It("should list, open and deactivate a queue", func() {
			status, _ := h.doRequest(http.MethodPost, "/queue/create",
				map[string]interface{}{"queueType": "Physical", "storeId": storeID, "description": "walk-in"})
			Expect(status).To(Equal(http.StatusCreated))

			status, body := h.doRequest(http.MethodGet, "/queue/get/"+storeID, nil)
			Expect(status).To(Equal(http.StatusOK))

			var list []domain.QueueResponse
			parseResponse(body, &list)
			Expect(list).To(HaveLen(1))
			Expect(list[0].Status).To(Equal("Closed"))
			id := list[0].ID

			status, body = h.doRequest(http.MethodPost, "/queue/edit/status", map[string]interface{}{"id": id, "status": "Open"})
			Expect(status).To(Equal(http.StatusOK))

			var updated domain.QueueResponse
			parseResponse(body, &updated)
			Expect(updated.Status).To(Equal("Open"))

			status, body = h.doRequest(http.MethodPost, "/queue/edit/active-status", map[string]interface{}{"id": id, "deactivated": true})
			Expect(status).To(Equal(http.StatusOK))
			parseResponse(body, &updated)
			Expect(updated.Deactivated).To(BeTrue())

			status, body = h.doRequest(http.MethodGet, "/queue/details/"+id, nil)
			Expect(status).To(Equal(http.StatusOK))
			parseResponse(body, &updated)
			Expect(updated.Status).To(Equal("Open"))
			Expect(updated.Deactivated).To(BeTrue())
			Expect(*updated.Description).To(Equal("walk-in"))
		})

		It("should reject a queue for a store that has not been synced", func() {
			status, _ := h.doRequest(http.MethodPost, "/queue/create",
				map[string]interface{}{"queueType": "Virtual", "storeId": "unknown-store"})
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("should serve the static lookups", func() {
			status, body := h.doRequest(http.MethodGet, "/config/queue-types", nil)
			Expect(status).To(Equal(http.StatusOK))

			var entries []api.ConfigEntry
			parseResponse(body, &entries)
			Expect(entries).To(ConsistOf(
				api.ConfigEntry{Key: "Physical", Value: "Physical"},
				api.ConfigEntry{Key: "Virtual", Value: "Virtual"},
			))
		})
	})

	Describe("Publishing over HTTP", func() {
		It("should sync a store posted to the events endpoint", func() {
			status := h.postRaw("/events/store-create-event",
				`{"id":"`+storeID+`","s_id":3,"name":"Quayside","alias":null,"company_id":"company-7"}`)
			Expect(status).To(Equal(http.StatusAccepted))

			Expect(h.poller.PollOnce(ctx)).To(Equal(queue.StateAcked))

			s, err := h.stores.GetByID(ctx, storeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.DisplayID()).To(Equal("S3"))
			Expect(s.Alias).To(BeNil())
		})

		It("should not enqueue an event the poller could not decode", func() {
			status := h.postRaw("/events/store-update-event", `{"id":"`+storeID+`"}`)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(h.inbound.Len()).To(Equal(0))
		})
	})

	Describe("Fixture data", func() {
		It("should load the fixture stores with open virtual queues", func() {
			Expect(seed.TestData(ctx, h.stores, h.queues, discardLogger())).To(Succeed())

			for _, s := range seed.FixtureStores() {
				status, body := h.doRequest(http.MethodGet, "/queue/get/"+s.ID, nil)
				Expect(status).To(Equal(http.StatusOK))

				var list []domain.QueueResponse
				parseResponse(body, &list)
				Expect(list).To(HaveLen(1))
				Expect(list[0].QueueType).To(Equal("Virtual"))
				Expect(list[0].Status).To(Equal("Open"))
			}
		})
	})
})
