package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/metrics"
)

// State is the poller's position in its receive/settle cycle.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateEmpty
	StateHasMessage
	StateProcessing
	StateAcked
	StateReleased
	StateDeadLettered
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateEmpty:
		return "empty"
	case StateHasMessage:
		return "has_message"
	case StateProcessing:
		return "processing"
	case StateAcked:
		return "acked"
	case StateReleased:
		return "released"
	case StateDeadLettered:
		return "dead_lettered"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// PollerConfig holds the poller's timings and dead-letter policy.
type PollerConfig struct {
	// WaitTime is the long-poll wait passed to Receive.
	WaitTime time.Duration

	// PollInterval is the pause after every cycle.
	PollInterval time.Duration

	// ProcessTimeout bounds a single handler call; 0 disables it.
	ProcessTimeout time.Duration

	// MaxReceives is the receive count at which a failing message is
	// dead-lettered. Only used when a sink is configured.
	MaxReceives int
}

// Poller receives one message at a time, hands it to the handler and
// settles it: delete on success, release on failure, dead-letter when the
// sink is set and the failure is permanent or retried too often.
type Poller struct {
	receiver   Receiver
	handler    Handler
	deadLetter DeadLetterSink
	cfg        PollerConfig
	logger     *slog.Logger

	state atomic.Int32
}

// NewPoller creates a poller. deadLetter may be nil, which disables
// dead-lettering and keeps failing messages cycling through release.
func NewPoller(receiver Receiver, handler Handler, deadLetter DeadLetterSink, cfg PollerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		receiver:   receiver,
		handler:    handler,
		deadLetter: deadLetter,
		cfg:        cfg,
		logger:     logger,
	}
}

// State returns the current state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// Run polls until ctx is canceled. It always returns nil; receive errors
// are logged and retried after the poll interval.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting queue poller",
		"waitTime", p.cfg.WaitTime,
		"pollInterval", p.cfg.PollInterval,
		"deadLetter", p.deadLetter != nil,
	)
	defer func() {
		p.setState(StateStopped)
		p.logger.Info("queue poller stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		p.PollOnce(ctx)

		if !sleep(ctx, p.cfg.PollInterval) {
			return nil
		}
		p.setState(StateIdle)
	}
}

// PollOnce runs a single receive/handle/settle cycle and returns the state
// it ended in.
func (p *Poller) PollOnce(ctx context.Context) State {
	p.setState(StateFetching)

	msg, err := p.receiver.Receive(ctx, p.cfg.WaitTime)
	if err != nil {
		if ctx.Err() != nil {
			return p.State()
		}
		metrics.PollErrorsTotal.WithLabelValues("receive").Inc()
		p.logger.Error("failed to receive message", "error", err)
		p.setState(StateIdle)
		return StateIdle
	}
	if msg == nil {
		p.setState(StateEmpty)
		return StateEmpty
	}

	p.setState(StateHasMessage)
	metrics.MessagesReceivedTotal.WithLabelValues(msg.RoutingKey).Inc()

	p.logger.Debug("received message",
		"messageID", msg.ID,
		"routingKey", msg.RoutingKey,
		"receiveCount", msg.ReceiveCount,
	)

	p.setState(StateProcessing)
	handleErr := p.handle(ctx, msg)

	// A canceled poller leaves the message to its visibility timeout.
	if ctx.Err() != nil {
		p.logger.Info("shutdown during processing, message left for redelivery", "messageID", msg.ID)
		return p.State()
	}

	return p.settle(ctx, msg, handleErr)
}

// handle runs the handler under the optional timeout and turns a panic into
// a persistence failure.
func (p *Poller) handle(ctx context.Context, msg *Message) (err error) {
	start := time.Now()
	defer func() {
		metrics.MessageProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if p.cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ProcessTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &domain.Failure{
				Kind: domain.KindPersistence,
				Op:   "handle message",
				Err:  fmt.Errorf("panic: %v", r),
			}
		}
	}()

	return p.handler(ctx, msg)
}

func (p *Poller) settle(ctx context.Context, msg *Message, handleErr error) State {
	if handleErr == nil {
		if err := p.receiver.Delete(ctx, msg); err != nil {
			// the message comes back and is applied again; the applier is idempotent
			metrics.PollErrorsTotal.WithLabelValues("delete").Inc()
			p.logger.Error("failed to delete message", "messageID", msg.ID, "error", err)
		}
		metrics.MessagesSettledTotal.WithLabelValues("acked").Inc()
		p.setState(StateAcked)
		return StateAcked
	}

	kind := domain.KindOf(handleErr)

	if p.shouldDeadLetter(msg, kind) {
		if err := p.deadLetter.Send(ctx, msg, handleErr); err != nil {
			metrics.PollErrorsTotal.WithLabelValues("dead_letter").Inc()
			p.logger.Error("failed to dead-letter message, releasing instead",
				"messageID", msg.ID,
				"error", err,
			)
			return p.release(ctx, msg, handleErr, kind)
		}
		if err := p.receiver.Delete(ctx, msg); err != nil {
			metrics.PollErrorsTotal.WithLabelValues("delete").Inc()
			p.logger.Error("failed to delete dead-lettered message", "messageID", msg.ID, "error", err)
		}
		p.logger.Warn("message dead-lettered",
			"messageID", msg.ID,
			"routingKey", msg.RoutingKey,
			"receiveCount", msg.ReceiveCount,
			"kind", kind.String(),
			"error", handleErr,
		)
		metrics.MessagesSettledTotal.WithLabelValues("dead_lettered").Inc()
		p.setState(StateDeadLettered)
		return StateDeadLettered
	}

	return p.release(ctx, msg, handleErr, kind)
}

func (p *Poller) release(ctx context.Context, msg *Message, handleErr error, kind domain.FailureKind) State {
	p.logger.Warn("failed to process message, releasing",
		"messageID", msg.ID,
		"routingKey", msg.RoutingKey,
		"receiveCount", msg.ReceiveCount,
		"kind", kind.String(),
		"error", handleErr,
	)

	if err := p.receiver.Release(ctx, msg); err != nil {
		metrics.PollErrorsTotal.WithLabelValues("release").Inc()
		p.logger.Error("failed to release message", "messageID", msg.ID, "error", err)
	}
	metrics.MessagesSettledTotal.WithLabelValues("released").Inc()
	p.setState(StateReleased)
	return StateReleased
}

func (p *Poller) shouldDeadLetter(msg *Message, kind domain.FailureKind) bool {
	if p.deadLetter == nil {
		return false
	}
	if kind.Permanent() {
		return true
	}
	return p.cfg.MaxReceives > 0 && msg.ReceiveCount >= p.cfg.MaxReceives
}

// sleep waits for d and reports false if ctx was canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
