package flagdecide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/bucketing"
	"github.com/flagdecide/go-server-sdk/util"
)

// ErrDispatchRetryable marks a dispatch failure worth retrying on the next
// flush. Dispatchers wrap it, other errors drop the payload.
var ErrDispatchRetryable = errors.New("retryable event dispatch failure")

// EventDispatcher delivers flushed event payloads to an analytics backend.
type EventDispatcher interface {
	DispatchEvents(ctx context.Context, payload api.FlushPayload) error
}

// EventDispatcherFunc adapts a function to the EventDispatcher interface.
type EventDispatcherFunc func(ctx context.Context, payload api.FlushPayload) error

func (f EventDispatcherFunc) DispatchEvents(ctx context.Context, payload api.FlushPayload) error {
	return f(ctx, payload)
}

// LogEventDispatcher writes every payload to the package logger.
type LogEventDispatcher struct{}

func (LogEventDispatcher) DispatchEvents(_ context.Context, payload api.FlushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload %s: %w", payload.PayloadId, err)
	}
	util.Infof("Dispatching %d events in payload %s: %s", payload.EventCount, payload.PayloadId, body)
	return nil
}

type FlushResult struct {
	SuccessPayloads          []string
	FailurePayloads          []string
	FailureWithRetryPayloads []string
}

// EventManager is responsible for flushing the event queue and handing the
// payloads to the EventDispatcher. It wraps the bucketing package's EventQueue.
type EventManager struct {
	internalQueue *bucketing.EventQueue
	flushMutex    *sync.Mutex
	options       *Options
	dispatcher    EventDispatcher
	revision      func() string
	closed        atomic.Bool
	closeOnce     sync.Once
	flushStop     chan struct{}
	forceFlush    chan struct{}
	flushDone     chan struct{}
}

func NewEventManager(options *Options, queue *bucketing.EventQueue, dispatcher EventDispatcher, revision func() string) (eventManager *EventManager, err error) {
	if queue == nil || dispatcher == nil {
		return nil, errors.New("event manager requires an event queue and a dispatcher")
	}
	e := &EventManager{
		internalQueue: queue,
		flushMutex:    &sync.Mutex{},
		options:       options,
		dispatcher:    dispatcher,
		revision:      revision,
		flushStop:     make(chan struct{}),
		forceFlush:    make(chan struct{}, 1),
		flushDone:     make(chan struct{}),
	}

	// Disable automatic flushing of events if all sources of events are disabled
	if e.options.DisableAutomaticEventLogging && e.options.DisableCustomEventLogging {
		close(e.flushDone)
		return e, nil
	}

	ticker := time.NewTicker(e.options.EventFlushInterval)

	go func() {
		defer close(e.flushDone)
		for {
			select {
			case <-ticker.C:
				if err := e.FlushEvents(context.Background()); err != nil {
					util.Warnf("Error flushing primary events queue: %s", err)
				}
			case <-e.forceFlush:
				if err := e.FlushEvents(context.Background()); err != nil {
					util.Warnf("Error flushing primary events queue: %s", err)
				}
			case <-e.flushStop:
				ticker.Stop()
				util.Infof("Stopping event flushing.")
				return
			}
		}
	}()

	return e, nil
}

func (e *EventManager) QueueDecisionEvent(user api.User, decision api.Decision) error {
	return e.queue(func() error {
		return e.internalQueue.QueueDecisionEvent(user, decision)
	})
}

func (e *EventManager) QueueConversionEvent(user api.User, event *bucketing.Event, tags map[string]interface{}) error {
	return e.queue(func() error {
		return e.internalQueue.QueueConversionEvent(user, event, tags)
	})
}

func (e *EventManager) queue(enqueue func() error) error {
	if e.closed.Load() {
		return ErrClientClosed
	}

	queueSize := e.internalQueue.UserQueueLength()
	if queueSize >= e.options.FlushEventQueueSize {
		select {
		case e.forceFlush <- struct{}{}:
			util.Debugf("FlushEventQueueSize of %d reached: %d, flushing events", e.options.FlushEventQueueSize, queueSize)
		default:
		}
	}

	err := enqueue()
	if errors.Is(err, bucketing.ErrQueueFull) {
		return fmt.Errorf("event queue is full, dropping event: %w", err)
	}
	return err
}

// FlushEvents hands every queued event to the dispatcher. Payloads whose
// dispatch failed with ErrDispatchRetryable stay queued for the next flush.
func (e *EventManager) FlushEvents(ctx context.Context) (err error) {
	e.flushMutex.Lock()
	defer e.flushMutex.Unlock()

	util.Debugf("Started flushing events")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in FlushEvents: %v", r)
		}
	}()

	revision := ""
	if e.revision != nil {
		revision = e.revision()
	}
	payloads, err := e.internalQueue.FlushEventQueue(revision)
	if err != nil {
		return err
	}

	result := e.flushEventPayloads(ctx, payloads)
	e.internalQueue.HandleFlushResults(result.SuccessPayloads, result.FailurePayloads, result.FailureWithRetryPayloads)

	util.Debugf("Finished flushing events")

	return ctx.Err()
}

func (e *EventManager) flushEventPayloads(ctx context.Context, payloads map[string]api.FlushPayload) *FlushResult {
	result := &FlushResult{
		SuccessPayloads:          make([]string, 0, len(payloads)),
		FailurePayloads:          make([]string, 0),
		FailureWithRetryPayloads: make([]string, 0),
	}

	for id, payload := range payloads {
		if ctx.Err() != nil {
			result.FailureWithRetryPayloads = append(result.FailureWithRetryPayloads, id)
			continue
		}
		err := e.dispatcher.DispatchEvents(ctx, payload)
		switch {
		case err == nil:
			result.SuccessPayloads = append(result.SuccessPayloads, id)
		case errors.Is(err, ErrDispatchRetryable):
			util.Warnf("Event dispatch failed, retrying later: %s", err)
			result.FailureWithRetryPayloads = append(result.FailureWithRetryPayloads, id)
		default:
			_ = util.Errorf("Error sending events: %s", err)
			result.FailurePayloads = append(result.FailurePayloads, id)
		}
	}

	return result
}

// Metrics returns the number of events flushed, payloads reported, and events dropped
func (e *EventManager) Metrics() (int32, int32, int32) {
	return e.internalQueue.Metrics()
}

// Close stops the flush loop, refuses new events, and flushes what is left.
func (e *EventManager) Close(ctx context.Context) (err error) {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.flushStop)
		<-e.flushDone
		_ = e.internalQueue.Close()
		err = e.FlushEvents(ctx)
	})
	return err
}
