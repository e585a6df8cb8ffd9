package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// ErrStreamIdle is the cause recorded when the upstream stops sending
// deltas for longer than the idle timeout.
var ErrStreamIdle = errors.New("upstream stream idle")

// EventStream is a lazy, finite, single-use sequence of relay events.
// It is not safe for concurrent use; cancel the context passed to
// Service.Stream to stop it from another goroutine.
type EventStream struct {
	svc       *Service
	parent    context.Context
	ctx       context.Context
	cancel    context.CancelCauseFunc
	req       *llm.ChatCompletionRequest
	cred      *domain.SessionCredential
	requestID string
	idle      time.Duration

	upstream  llm.DeltaStream
	watchdog  *time.Timer
	// waiting is true only while Next is blocked in Recv; the watchdog
	// cancels nothing outside that window.
	waitMu    sync.Mutex
	waiting   bool
	startTime time.Time
	opened    bool
	finished  bool
	deltas    int
}

func newEventStream(parent context.Context, svc *Service, req *llm.ChatCompletionRequest, cred *domain.SessionCredential, requestID string, idle time.Duration) *EventStream {
	ctx, cancel := context.WithCancelCause(parent)
	return &EventStream{
		svc:       svc,
		parent:    parent,
		ctx:       ctx,
		cancel:    cancel,
		req:       req,
		cred:      cred,
		requestID: requestID,
		idle:      idle,
	}
}

// RequestID identifies this relay in logs and audit events.
func (es *EventStream) RequestID() string { return es.requestID }

// Model is the resolved upstream model.
func (es *EventStream) Model() string { return es.req.Model }

// Next returns the next event. It reports false once the sequence is
// exhausted: after a Done or Error event, or as soon as the caller's
// context is cancelled.
func (es *EventStream) Next() (domain.Event, bool) {
	if es.finished {
		return domain.Event{}, false
	}
	if es.parent.Err() != nil {
		es.finish("cancelled", "")
		return domain.Event{}, false
	}

	if !es.opened {
		es.opened = true
		if err := es.open(); err != nil {
			return es.fail(err)
		}
	}

	for {
		es.setWaiting(true)
		es.watchdog.Reset(es.idle)
		delta, err := es.upstream.Recv()
		es.watchdog.Stop()
		es.setWaiting(false)

		if err != nil {
			if errors.Is(err, io.EOF) && es.parent.Err() == nil {
				es.finish("done", "")
				es.svc.metrics.RecordStreamEvent(string(domain.EventTypeDone))
				return domain.DoneEvent(), true
			}
			return es.fail(err)
		}
		if es.parent.Err() != nil {
			es.finish("cancelled", "")
			return domain.Event{}, false
		}
		if delta.Content == "" {
			continue
		}

		es.deltas++
		es.svc.metrics.RecordStreamEvent(string(domain.EventTypeData))
		return domain.DataEvent(delta.Content), true
	}
}

// Close releases the upstream connection. It is safe to call more than
// once and after the stream has finished.
func (es *EventStream) Close() error {
	if !es.finished {
		es.finish("cancelled", "")
	}
	return nil
}

func (es *EventStream) open() error {
	es.startTime = es.svc.now()
	es.svc.recordStarted(es.ctx, es.requestID, es.cred, es.req, true)

	upstream, err := es.svc.llmClient.CreateChatCompletionStream(es.ctx, es.req)
	if err != nil {
		return err
	}
	es.upstream = upstream
	es.watchdog = time.AfterFunc(es.idle, es.idleTimeout)
	es.watchdog.Stop()
	return nil
}

func (es *EventStream) setWaiting(waiting bool) {
	es.waitMu.Lock()
	es.waiting = waiting
	es.waitMu.Unlock()
}

// idleTimeout aborts the upstream if Next is still waiting on it. A timer
// that fires after Recv returned is ignored.
func (es *EventStream) idleTimeout() {
	es.waitMu.Lock()
	defer es.waitMu.Unlock()
	if es.waiting {
		es.cancel(fmt.Errorf("%w: no data for %s", ErrStreamIdle, es.idle))
	}
}

// fail converts an upstream fault into the terminal Error event. A fault
// caused by the caller going away produces no event at all.
func (es *EventStream) fail(err error) (domain.Event, bool) {
	if es.parent.Err() != nil {
		es.finish("cancelled", "")
		return domain.Event{}, false
	}
	if cause := context.Cause(es.ctx); errors.Is(cause, ErrStreamIdle) {
		err = cause
	}

	es.svc.logger.Warn("upstream stream failed",
		"request_id", es.requestID,
		"identity", es.cred.Identity,
		"model", es.req.Model,
		"deltas", es.deltas,
		"error", err,
	)
	es.finish("error", err.Error())
	es.svc.metrics.RecordStreamEvent(string(domain.EventTypeError))
	return domain.ErrorEvent(err.Error()), true
}

// finish ends the stream exactly once: the upstream is released and the
// outcome is audited.
func (es *EventStream) finish(outcome, errMsg string) {
	if es.finished {
		return
	}
	es.finished = true

	if es.watchdog != nil {
		es.watchdog.Stop()
	}
	es.cancel(context.Canceled)
	if es.upstream != nil {
		if err := es.upstream.Close(); err != nil {
			es.svc.logger.Debug("failed to close upstream stream", "request_id", es.requestID, "error", err)
		}
	}

	if !es.opened {
		return
	}
	latency := es.svc.now().Sub(es.startTime)
	es.svc.metrics.RecordRelay("stream", es.svc.modelSource(es.req.Model), outcome, latency)
	if outcome == "cancelled" {
		es.svc.logger.Info("relay stream cancelled by caller", "request_id", es.requestID, "deltas", es.deltas)
	}
	es.svc.recordDone(es.ctx, es.requestID, es.cred, domain.ChatDonePayload{
		Model:     es.req.Model,
		Stream:    true,
		LatencyMs: latency.Milliseconds(),
		Deltas:    es.deltas,
		Cancelled: outcome == "cancelled",
		Error:     errMsg,
	})
}
