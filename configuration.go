package flagdecide

import (
	"time"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

type EventQueueOptions = api.EventQueueOptions

type AdvancedOptions struct {
	OverridePlatformData *api.PlatformData
}

type Options struct {
	EventFlushInterval           time.Duration `json:"eventFlushInterval,omitempty"`
	DatafilePollingInterval      time.Duration `json:"datafilePollingInterval,omitempty"`
	DisableAutomaticEventLogging bool          `json:"disableAutomaticEventLogging,omitempty"`
	DisableCustomEventLogging    bool          `json:"disableCustomEventLogging,omitempty"`
	MaxEventQueueSize            int           `json:"maxEventsPerFlush,omitempty"`
	FlushEventQueueSize          int           `json:"minEventsPerFlush,omitempty"`
	EventRequestChunkSize        int           `json:"eventRequestChunkSize,omitempty"`
	MaxFlushRetries              int           `json:"maxFlushRetries,omitempty"`
	// BucketCacheSize enables memoization of bucket values when positive.
	BucketCacheSize int `json:"bucketCacheSize,omitempty"`
	// DefaultDecideOptions are combined with the options of every decide call.
	DefaultDecideOptions api.DecideOptions `json:"defaultDecideOptions,omitempty"`
	// EventDispatcher receives flushed event payloads. No events are queued
	// when it is nil.
	EventDispatcher    EventDispatcher `json:"-"`
	ClientEventHandler chan api.ClientEvent
	Logger             util.Logger
	EvalHooks          []*EvalHook
	AdvancedOptions
}

func (o *Options) eventQueueOptions() *EventQueueOptions {
	return &EventQueueOptions{
		FlushEventsInterval:          o.EventFlushInterval,
		DisableAutomaticEventLogging: o.DisableAutomaticEventLogging,
		DisableCustomEventLogging:    o.DisableCustomEventLogging,
		MaxEventQueueSize:            o.MaxEventQueueSize,
		FlushEventQueueSize:          o.FlushEventQueueSize,
		EventRequestChunkSize:        o.EventRequestChunkSize,
		MaxFlushRetries:              o.MaxFlushRetries,
	}
}

func (o *Options) CheckDefaults() {
	if o.EventFlushInterval < time.Millisecond*500 || o.EventFlushInterval > time.Minute*1 {
		if o.EventFlushInterval != 0 {
			util.Warnf("EventFlushInterval cannot be less than 500ms or longer than 1 minute. Defaulting to 30 seconds.")
		}
		o.EventFlushInterval = time.Second * 30
	}
	if o.DatafilePollingInterval < 0 {
		o.DatafilePollingInterval = 0
	} else if o.DatafilePollingInterval > 0 && o.DatafilePollingInterval < time.Second*1 {
		util.Warnf("DatafilePollingInterval cannot be less than 1 second. Defaulting to 1 second.")
		o.DatafilePollingInterval = time.Second * 1
	}

	if o.MaxEventQueueSize <= 0 {
		o.MaxEventQueueSize = 10000
	} else if o.MaxEventQueueSize > 50000 {
		o.MaxEventQueueSize = 50000
	}

	if o.FlushEventQueueSize <= 0 {
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
	if o.BucketCacheSize < 0 {
		o.BucketCacheSize = 0
	}
}
