package flagdecide

import (
	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/bucketing"
	"github.com/flagdecide/go-server-sdk/util"
)

// UserContext is a user bound to the datafile snapshot that was active when
// it was created. Later datafile updates do not affect it. A UserContext is
// not safe for concurrent SetAttribute calls.
type UserContext struct {
	client *Client
	config *bucketing.Config
	user   api.User
}

func (u *UserContext) UserID() string {
	return u.user.UserId
}

// Attributes returns a copy of the user's attributes.
func (u *UserContext) Attributes() api.UserAttributes {
	return u.user.Attributes.Copy()
}

func (u *UserContext) SetAttribute(key string, value interface{}) {
	if u.user.Attributes == nil {
		u.user.Attributes = make(api.UserAttributes)
	}
	u.user.Attributes[key] = value
}

// Config returns the snapshot this context decides against.
func (u *UserContext) Config() *bucketing.Config {
	return u.config
}

// Decide evaluates one flag. An unknown key returns a *FlagNotFoundError.
func (u *UserContext) Decide(flagKey string, options api.DecideOptions) (api.Decision, error) {
	return u.client.decide(u.config, u.user, flagKey, options)
}

// DecideForKeys evaluates the given flags. Unknown keys are logged and left
// out of the result, as are disabled decisions when EnabledFlagsOnly is set.
func (u *UserContext) DecideForKeys(flagKeys []string, options api.DecideOptions) map[string]api.Decision {
	effective := u.client.options.DefaultDecideOptions.Merge(options)
	decisions := make(map[string]api.Decision, len(flagKeys))
	for _, key := range flagKeys {
		decision, err := u.client.decide(u.config, u.user, key, options)
		if err != nil {
			util.Warnf("Skipping flag %q: %s", key, err)
			continue
		}
		if effective.EnabledFlagsOnly && !decision.Enabled {
			continue
		}
		decisions[key] = decision
	}
	return decisions
}

// DecideAll evaluates every flag in the snapshot.
func (u *UserContext) DecideAll(options api.DecideOptions) map[string]api.Decision {
	return u.DecideForKeys(u.config.FlagKeys(), options)
}

// TrackEvent records a conversion for the user. The event key must exist in
// the datafile. A numeric "value" tag becomes the event value.
func (u *UserContext) TrackEvent(eventKey string, tags map[string]interface{}) error {
	return u.client.trackEvent(u.config, u.user, eventKey, tags)
}
