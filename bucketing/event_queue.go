package bucketing

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

var ErrQueueFull = errors.New("max queue size reached")
var ErrQueueClosed = errors.New("event queue is closed")

const (
	payloadStatusSending = "sending"
	payloadStatusFailed  = "failed"
)

type userEventData struct {
	event api.Event
	user  api.User
}

type UserEventQueue map[string]api.UserEventsBatchRecord

// BuildBatchRecords returns the queued records ordered by user id.
func (u *UserEventQueue) BuildBatchRecords() []api.UserEventsBatchRecord {
	records := make([]api.UserEventsBatchRecord, 0, len(*u))
	for _, record := range *u {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].User.UserId < records[j].User.UserId
	})
	return records
}

// EventQueue buffers decision and conversion events in memory. Queueing never
// blocks: when the raw queue is full the event is dropped and counted. Raw
// events are grouped per user when the queue is flushed.
type EventQueue struct {
	options             *api.EventQueueOptions
	userEventQueueRaw   chan userEventData
	userEventQueue      UserEventQueue
	userEventQueueCount int
	queueAccess         *sync.RWMutex
	pendingPayloads     map[string]*api.FlushPayload
	payloadRetries      map[string]int
	closed              atomic.Bool
	eventsFlushed       atomic.Int32
	eventsReported      atomic.Int32
	eventsDropped       atomic.Int32
	platformData        *api.PlatformData
}

func NewEventQueue(options *api.EventQueueOptions, platformData *api.PlatformData) (*EventQueue, error) {
	if options == nil {
		return nil, fmt.Errorf("event queue options are required")
	}

	options.CheckBounds()

	eq := &EventQueue{
		options:           options,
		userEventQueueRaw: make(chan userEventData, options.MaxEventQueueSize),
		userEventQueue:    make(UserEventQueue),
		queueAccess:       &sync.RWMutex{},
		pendingPayloads:   make(map[string]*api.FlushPayload),
		payloadRetries:    make(map[string]int),
		platformData:      platformData,
	}

	return eq, nil
}

func (eq *EventQueue) QueueEvent(user api.User, event api.Event) error {
	if eq.closed.Load() {
		return ErrQueueClosed
	}
	if eq.options.IsEventLoggingDisabled(event.Type_) {
		return nil
	}
	if event.ClientDate.IsZero() {
		event.ClientDate = time.Now()
	}
	event.UserId = user.UserId

	select {
	case eq.userEventQueueRaw <- userEventData{
		event: event,
		user:  user.Copy(),
	}:
	default:
		eq.eventsDropped.Add(1)
		return ErrQueueFull
	}

	return nil
}

// QueueDecisionEvent records that the user was served decision.
func (eq *EventQueue) QueueDecisionEvent(user api.User, decision api.Decision) error {
	metaData := map[string]interface{}{
		"reason": string(decision.Reason),
	}
	if decision.VariationId != "" {
		metaData["variationId"] = decision.VariationId
	}
	if decision.RuleId != "" {
		metaData["ruleId"] = decision.RuleId
	}
	return eq.QueueEvent(user, api.Event{
		Type_:        api.EventType_Decision,
		Target:       decision.FlagKey,
		RuleKey:      decision.RuleKey,
		RuleType:     decision.RuleType,
		VariationKey: decision.VariationKey,
		Enabled:      decision.Enabled,
		MetaData:     metaData,
	})
}

// QueueConversionEvent records a tracked event. A numeric "value" tag becomes
// the event value.
func (eq *EventQueue) QueueConversionEvent(user api.User, event *Event, tags map[string]interface{}) error {
	metaData := make(map[string]interface{}, len(tags)+1)
	for k, v := range tags {
		metaData[k] = v
	}
	metaData["eventId"] = event.Id
	var value float64
	if v, ok := asFiniteFloat(tags["value"]); ok {
		value = v
	}
	return eq.QueueEvent(user, api.Event{
		Type_:    api.EventType_Conversion,
		Target:   event.Key,
		Value:    value,
		MetaData: metaData,
	})
}

// FlushEventQueue moves every queued event into pending payloads of at most
// EventRequestChunkSize events and returns all payloads awaiting delivery,
// including earlier ones marked for retry.
func (eq *EventQueue) FlushEventQueue(revision string) (map[string]api.FlushPayload, error) {
	eq.queueAccess.Lock()
	defer eq.queueAccess.Unlock()

	eq.processEvents()
	records := eq.userEventQueue.BuildBatchRecords()
	eq.userEventQueue = make(UserEventQueue)
	eq.userEventQueueCount = 0

	chunkSize := eq.options.EventRequestChunkSize
	var payload *api.FlushPayload
	for _, record := range records {
		for _, chunk := range api.ChunkSlice(record.Events, chunkSize) {
			if payload == nil || payload.EventCount+len(chunk) > chunkSize {
				payload = &api.FlushPayload{
					PayloadId: uuid.New().String(),
					Revision:  revision,
					Platform:  eq.platformData,
					Status:    payloadStatusSending,
				}
				eq.pendingPayloads[payload.PayloadId] = payload
			}
			payload.AddBatchRecordForUser(api.UserEventsBatchRecord{User: record.User, Events: chunk}, chunkSize)
			eq.eventsFlushed.Add(int32(len(chunk)))
		}
	}
	eq.updateFailedPayloads()

	result := make(map[string]api.FlushPayload, len(eq.pendingPayloads))
	for id, pl := range eq.pendingPayloads {
		result[id] = *pl
	}
	return result, nil
}

func (eq *EventQueue) HandleFlushResults(successPayloads []string, failurePayloads []string, failureWithRetryPayloads []string) {
	eq.queueAccess.Lock()
	defer eq.queueAccess.Unlock()

	var reported int32

	for _, payloadId := range successPayloads {
		if err := eq.reportPayloadSuccess(payloadId); err != nil {
			_ = util.Errorf("failed to mark event payloads as successful: %v", err)
		} else {
			reported++
		}
	}
	for _, payloadId := range failurePayloads {
		if err := eq.reportPayloadFailure(payloadId, false); err != nil {
			_ = util.Errorf("failed to mark event payloads as failed: %v", err)
		} else {
			reported++
		}
	}
	for _, payloadId := range failureWithRetryPayloads {
		if err := eq.reportPayloadFailure(payloadId, true); err != nil {
			_ = util.Errorf("failed to mark event payloads as failed: %v", err)
		} else {
			reported++
		}
	}

	eq.eventsReported.Add(reported)
}

// Metrics returns the number of events flushed, payloads reported, and events dropped
func (eq *EventQueue) Metrics() (int32, int32, int32) {
	return eq.eventsFlushed.Load(), eq.eventsReported.Load(), eq.eventsDropped.Load()
}

// Close stops accepting events. Events already queued can still be flushed.
func (eq *EventQueue) Close() (err error) {
	eq.closed.Store(true)
	return
}

// UserQueueLength counts events not yet flushed.
func (eq *EventQueue) UserQueueLength() int {
	eq.queueAccess.RLock()
	defer eq.queueAccess.RUnlock()
	return eq.userEventQueueCount + len(eq.userEventQueueRaw)
}

func (eq *EventQueue) PendingPayloadCount() int {
	eq.queueAccess.RLock()
	defer eq.queueAccess.RUnlock()
	return len(eq.pendingPayloads)
}

func (eq *EventQueue) updateFailedPayloads() {
	for _, pl := range eq.pendingPayloads {
		if pl.Status == payloadStatusFailed {
			pl.Status = payloadStatusSending
		}
	}
}

func (eq *EventQueue) reportPayloadSuccess(payloadId string) error {
	if _, ok := eq.pendingPayloads[payloadId]; !ok {
		return fmt.Errorf("failed to find payload: %s to mark as success", payloadId)
	}
	delete(eq.pendingPayloads, payloadId)
	delete(eq.payloadRetries, payloadId)
	return nil
}

func (eq *EventQueue) reportPayloadFailure(payloadId string, retryable bool) error {
	pl, ok := eq.pendingPayloads[payloadId]
	if !ok {
		return fmt.Errorf("failed to find payload: %s, retryable: %v", payloadId, retryable)
	}
	if retryable {
		eq.payloadRetries[payloadId]++
		if eq.payloadRetries[payloadId] < eq.options.MaxFlushRetries {
			pl.Status = payloadStatusFailed
			return nil
		}
		util.Warnf("Dropping event payload %s after %d attempts", payloadId, eq.payloadRetries[payloadId])
	}
	eq.eventsDropped.Add(int32(pl.EventCount))
	delete(eq.pendingPayloads, payloadId)
	delete(eq.payloadRetries, payloadId)
	return nil
}

// processEvents groups every event already sitting in the raw queue by user.
// The caller holds queueAccess.
func (eq *EventQueue) processEvents() {
	for {
		select {
		case userEvent := <-eq.userEventQueueRaw:
			eq.processUserEvent(userEvent)
		default:
			return
		}
	}
}

func (eq *EventQueue) processUserEvent(event userEventData) {
	record, ok := eq.userEventQueue[event.user.UserId]
	if !ok {
		record = api.UserEventsBatchRecord{User: event.user}
	}
	record.User = event.user
	record.Events = append(record.Events, event.event)
	eq.userEventQueue[event.user.UserId] = record
	eq.userEventQueueCount++
}
