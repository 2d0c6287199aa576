package flagdecide

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/bucketing"
	"github.com/flagdecide/go-server-sdk/util"
)

const VERSION = "0.1.0"

var (
	ErrClientClosed    = errors.New("client was closed, no more events can be tracked")
	ErrMissingDatafile = errors.New("missing datafile")
	ErrEventNotFound   = bucketing.ErrEventNotFound
	ErrQueueFull       = bucketing.ErrQueueFull
)

// Client decides flags against the current datafile snapshot. The snapshot
// is replaced atomically by UpdateDatafile and by the datafile manager, so
// a Client is safe for concurrent use.
type Client struct {
	options        *Options
	config         atomic.Pointer[bucketing.Config]
	bucketCache    *bucketing.BucketCache
	eventManager   *EventManager
	configManager  *DatafileManager
	evalHookRunner *EvalHookRunner
	platformData   *api.PlatformData
	clientUUID     string
	closed         atomic.Bool
}

// LoadConfiguration parses and validates a datafile.
func LoadConfiguration(raw []byte) (*bucketing.Config, error) {
	return bucketing.NewConfig(raw)
}

// NewClient creates a client deciding against the given datafile.
func NewClient(datafile []byte, options *Options) (*Client, error) {
	if len(datafile) == 0 {
		return nil, ErrMissingDatafile
	}
	c, err := newClient(options)
	if err != nil {
		return nil, err
	}
	config, err := LoadConfiguration(datafile)
	if err != nil {
		c.emitClientEvent(api.ClientEvent{
			EventType: api.ClientEventType_Error,
			Status:    "error",
			Error:     err,
		})
		return nil, err
	}
	c.setConfig(config)
	if err := c.startEventManager(); err != nil {
		return nil, err
	}
	c.emitClientEvent(api.ClientEvent{
		EventType: api.ClientEventType_Initialized,
		EventData: config.Revision(),
		Status:    "success",
	})
	util.Infof("Client initialized with datafile revision %s", config.Revision())
	return c, nil
}

// NewClientFromFile creates a client from a datafile on disk. With a positive
// DatafilePollingInterval the file is watched and reloaded when it changes.
func NewClientFromFile(path string, options *Options) (*Client, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datafile %s: %w", path, err)
	}
	c, err := NewClient(raw, options)
	if err != nil {
		return nil, err
	}
	if c.options.DatafilePollingInterval > 0 {
		c.configManager, err = NewDatafileManager(path, c.options.DatafilePollingInterval, c.UpdateDatafile)
		if err != nil {
			_ = c.Close(context.Background())
			return nil, err
		}
	}
	return c, nil
}

func newClient(options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	if options.Logger != nil {
		util.SetLogger(options.Logger)
	}
	options.CheckDefaults()

	c := &Client{
		options:        options,
		evalHookRunner: NewEvalHookRunner(options.EvalHooks),
		clientUUID:     uuid.New().String(),
	}

	if options.OverridePlatformData != nil {
		c.platformData = options.OverridePlatformData
	} else {
		c.platformData = (&api.PlatformData{}).Default(VERSION)
	}

	if options.BucketCacheSize > 0 {
		cache, err := bucketing.NewBucketCache(options.BucketCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket cache: %w", err)
		}
		c.bucketCache = cache
	}
	return c, nil
}

func (c *Client) startEventManager() error {
	if c.options.EventDispatcher == nil {
		return nil
	}
	queue, err := bucketing.NewEventQueue(c.options.eventQueueOptions(), c.platformData)
	if err != nil {
		return err
	}
	c.eventManager, err = NewEventManager(c.options, queue, c.options.EventDispatcher, func() string {
		return c.Config().Revision()
	})
	return err
}

func (c *Client) setConfig(config *bucketing.Config) {
	c.config.Store(config)
}

func (c *Client) emitClientEvent(event api.ClientEvent) {
	if c.options.ClientEventHandler == nil {
		return
	}
	select {
	case c.options.ClientEventHandler <- event:
	default:
		util.Warnf("Client event handler is full, dropping %s event", event.EventType)
	}
}

// Config returns the active datafile snapshot.
func (c *Client) Config() *bucketing.Config {
	return c.config.Load()
}

// UUID identifies this client instance.
func (c *Client) UUID() string {
	return c.clientUUID
}

// UpdateDatafile swaps in a new datafile. A datafile that fails to parse is
// rejected and the previous snapshot stays active.
func (c *Client) UpdateDatafile(raw []byte) error {
	config, err := LoadConfiguration(raw)
	if err != nil {
		util.Warnf("Rejected datafile update, keeping revision %s: %s", c.Config().Revision(), err)
		c.emitClientEvent(api.ClientEvent{
			EventType: api.ClientEventType_Error,
			Status:    "error",
			Error:     err,
		})
		return err
	}
	c.setConfig(config)
	util.Infof("Datafile updated to revision %s", config.Revision())
	c.emitClientEvent(api.ClientEvent{
		EventType: api.ClientEventType_ConfigUpdated,
		EventData: config.Revision(),
		Status:    "success",
	})
	return nil
}

// CreateUserContext binds a user to the current datafile snapshot. The
// attributes are copied.
func (c *Client) CreateUserContext(userId string, attributes api.UserAttributes) *UserContext {
	return &UserContext{
		client: c,
		config: c.Config(),
		user: api.User{
			UserId:     userId,
			Attributes: attributes.Copy(),
		},
	}
}

// Decide evaluates one flag for the user against the current snapshot.
func (c *Client) Decide(user api.User, flagKey string, options api.DecideOptions) (api.Decision, error) {
	return c.decide(c.Config(), user, flagKey, options)
}

func (c *Client) decide(config *bucketing.Config, user api.User, flagKey string, options api.DecideOptions) (decision api.Decision, err error) {
	options = c.options.DefaultDecideOptions.Merge(options)

	hooks := c.evalHookRunner.Hooks()
	if len(hooks) == 0 {
		decision, err = c.bucketCache.Decide(config, flagKey, user, options)
		if err == nil {
			c.queueDecisionEvent(user, decision, options)
		}
		return decision, err
	}

	hookContext := &HookContext{
		User:      user,
		FlagKey:   flagKey,
		Options:   options,
		Revision:  config.Revision(),
		StartedAt: time.Now(),
	}
	defer func() {
		c.evalHookRunner.RunOnFinallyHooks(hooks, hookContext, decision)
	}()

	beforeHookErr := c.evalHookRunner.RunBeforeHooks(hooks, hookContext)

	decision, err = c.bucketCache.Decide(config, flagKey, user, options)
	if err != nil {
		c.evalHookRunner.RunErrorHooks(hooks, hookContext, err)
		return decision, err
	}

	if beforeHookErr != nil {
		c.evalHookRunner.RunErrorHooks(hooks, hookContext, beforeHookErr)
	} else if afterHookErr := c.evalHookRunner.RunAfterHooks(hooks, hookContext, decision); afterHookErr != nil {
		c.evalHookRunner.RunErrorHooks(hooks, hookContext, afterHookErr)
	}

	c.queueDecisionEvent(user, decision, options)
	return decision, nil
}

func (c *Client) queueDecisionEvent(user api.User, decision api.Decision, options api.DecideOptions) {
	if c.eventManager == nil || options.DisableDecisionEvent {
		return
	}
	if err := c.eventManager.QueueDecisionEvent(user, decision); err != nil && !errors.Is(err, ErrClientClosed) {
		util.Warnf("Failed to queue decision event for %s: %s", decision.FlagKey, err)
	}
}

func (c *Client) trackEvent(config *bucketing.Config, user api.User, eventKey string, tags map[string]interface{}) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	event, ok := config.Event(eventKey)
	if !ok {
		return fmt.Errorf("%w: %q", ErrEventNotFound, eventKey)
	}
	if c.eventManager == nil {
		return nil
	}
	return c.eventManager.QueueConversionEvent(user, event, tags)
}

// AddHook registers an evaluation hook for subsequent decide calls.
func (c *Client) AddHook(hook *EvalHook) {
	c.evalHookRunner.AddHook(hook)
}

func (c *Client) ClearHooks() {
	c.evalHookRunner.ClearHooks()
}

// FlushEvents delivers queued events to the EventDispatcher.
func (c *Client) FlushEvents(ctx context.Context) error {
	if c.eventManager == nil {
		return nil
	}
	return c.eventManager.FlushEvents(ctx)
}

// EventMetrics returns the number of events flushed, payloads reported, and
// events dropped.
func (c *Client) EventMetrics() (int32, int32, int32) {
	if c.eventManager == nil {
		return 0, 0, 0
	}
	return c.eventManager.Metrics()
}

// Close stops datafile polling and flushes outstanding events. Decisions
// keep working after Close, events are no longer recorded.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.configManager != nil {
		c.configManager.Close()
	}
	if c.eventManager != nil {
		return c.eventManager.Close(ctx)
	}
	return nil
}
