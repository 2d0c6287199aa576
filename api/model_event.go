package api

import (
	"time"
)

const (
	EventType_Decision   = "decision"
	EventType_Conversion = "conversion"
)

type Event struct {
	Type_        string                 `json:"type"`
	Target       string                 `json:"target,omitempty"`
	UserId       string                 `json:"user_id"`
	ClientDate   time.Time              `json:"clientDate"`
	Value        float64                `json:"value,omitempty"`
	RuleKey      string                 `json:"ruleKey,omitempty"`
	RuleType     RuleType               `json:"ruleType,omitempty"`
	VariationKey string                 `json:"variationKey,omitempty"`
	Enabled      bool                   `json:"enabled,omitempty"`
	MetaData     map[string]interface{} `json:"metaData,omitempty"`
}

type UserEventsBatchRecord struct {
	User   User    `json:"user"`
	Events []Event `json:"events"`
}

// FlushPayload is one batch handed to the event dispatcher. PayloadId is
// stable across retries of the same payload.
type FlushPayload struct {
	PayloadId  string                  `json:"payloadId"`
	EventCount int                     `json:"eventCount"`
	Records    []UserEventsBatchRecord `json:"records"`
	Revision   string                  `json:"revision,omitempty"`
	Platform   *PlatformData           `json:"platform,omitempty"`
	Status     string                  `json:"-"`
}

func (fp *FlushPayload) AddBatchRecordForUser(record UserEventsBatchRecord, chunkSize int) {
	fp.EventCount += len(record.Events)
	userRecord := fp.getRecordForUser(record.User.UserId)
	if userRecord != nil {
		userRecord.User = record.User
		userRecord.Events = append(userRecord.Events, record.Events...)
		return
	}
	for _, chunk := range ChunkSlice(record.Events, chunkSize) {
		fp.Records = append(fp.Records, UserEventsBatchRecord{
			User:   record.User,
			Events: chunk,
		})
	}
}

func (fp *FlushPayload) getRecordForUser(userId string) *UserEventsBatchRecord {
	for i := range fp.Records {
		if fp.Records[i].User.UserId == userId {
			return &fp.Records[i]
		}
	}
	return nil
}

type EventQueueOptions struct {
	FlushEventsInterval          time.Duration `json:"flushEventsMS"`
	DisableAutomaticEventLogging bool          `json:"disableAutomaticEventLogging"`
	DisableCustomEventLogging    bool          `json:"disableCustomEventLogging"`
	MaxEventQueueSize            int           `json:"maxEventsPerFlush,omitempty"`
	FlushEventQueueSize          int           `json:"minEventsPerFlush,omitempty"`
	EventRequestChunkSize        int           `json:"eventRequestChunkSize,omitempty"`
	MaxFlushRetries              int           `json:"maxFlushRetries,omitempty"`
}

func (o *EventQueueOptions) CheckBounds() {
	if o.MaxEventQueueSize < 100 {
		o.MaxEventQueueSize = 10000
	} else if o.MaxEventQueueSize > 50000 {
		o.MaxEventQueueSize = 50000
	}
	if o.FlushEventQueueSize == 0 {
		o.FlushEventQueueSize = 1000
	} else if o.FlushEventQueueSize > 50000 {
		o.FlushEventQueueSize = 50000
	}
	if o.EventRequestChunkSize <= 0 {
		o.EventRequestChunkSize = 100
	}
	if o.MaxFlushRetries <= 0 {
		o.MaxFlushRetries = 3
	}
}

// IsEventLoggingDisabled reports whether events of the given type are dropped
// before reaching the queue. Decision events are automatic, conversions are
// custom.
func (o *EventQueueOptions) IsEventLoggingDisabled(eventType string) bool {
	switch eventType {
	case EventType_Decision:
		return o.DisableAutomaticEventLogging
	default:
		return o.DisableCustomEventLogging
	}
}
