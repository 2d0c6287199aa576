package flagdecide

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/bucketing"
)

func TestNewClient_MissingDatafile(t *testing.T) {
	_, err := NewClient(nil, nil)
	require.ErrorIs(t, err, ErrMissingDatafile)
}

func TestNewClient_InvalidDatafile(t *testing.T) {
	events := make(chan api.ClientEvent, 1)
	_, err := NewClient([]byte(`{"revision": `), &Options{ClientEventHandler: events})
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))

	event := <-events
	assert.Equal(t, api.ClientEventType_Error, event.EventType)
	assert.Equal(t, err, event.Error)
}

func TestNewClient_Initialized(t *testing.T) {
	events := make(chan api.ClientEvent, 1)
	c := newTestClient(t, &Options{ClientEventHandler: events})

	event := <-events
	assert.Equal(t, api.ClientEventType_Initialized, event.EventType)
	assert.Equal(t, "73", event.EventData)
	assert.Equal(t, "73", c.Config().Revision())
	assert.NotEmpty(t, c.UUID())
}

func TestLoadConfiguration(t *testing.T) {
	config, err := LoadConfiguration(test_datafile)
	require.NoError(t, err)
	assert.Equal(t, "production", config.EnvironmentKey())
	assert.Equal(t, []string{"buy_button", "checkout_flow", "ios_feature", "no_rules", "premium_feature"}, config.FlagKeys())
}

func TestClient_DecideMatchesCore(t *testing.T) {
	c := newTestClient(t, nil)
	config := c.Config()

	for i := 0; i < 100; i++ {
		user := api.User{UserId: fmt.Sprintf("user%d", i), Attributes: api.UserAttributes{"age": i}}
		for _, flagKey := range config.FlagKeys() {
			expected, err := bucketing.Decide(config, flagKey, user, api.DecideOptions{})
			require.NoError(t, err)
			actual, err := c.Decide(user, flagKey, api.DecideOptions{})
			require.NoError(t, err)
			require.Equal(t, expected, actual)
		}
	}
}

func TestClient_DecideFlagNotFound(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.Decide(test_user, "nonexistent", api.DecideOptions{})
	var notFound *FlagNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nonexistent", notFound.FlagKey)

	_, err = c.Decide(test_user, "buy_button", api.DecideOptions{})
	require.NoError(t, err)
}

func TestClient_DefaultDecideOptions(t *testing.T) {
	c := newTestClient(t, &Options{DefaultDecideOptions: api.DecideOptions{ExcludeVariables: true}})

	decision, err := c.Decide(test_user, "checkout_flow", api.DecideOptions{IncludeReasons: true})
	require.NoError(t, err)
	assert.Nil(t, decision.Variables)
	assert.NotEmpty(t, decision.Reasons)
}

func TestClient_BucketCacheDoesNotChangeDecisions(t *testing.T) {
	cached := newTestClient(t, &Options{BucketCacheSize: 64})
	plain := newTestClient(t, nil)

	for i := 0; i < 200; i++ {
		user := api.User{UserId: fmt.Sprintf("user%d", i%50), Attributes: api.UserAttributes{"beta": i%2 == 0}}
		expected, err := plain.Decide(user, "checkout_flow", api.DecideOptions{})
		require.NoError(t, err)
		actual, err := cached.Decide(user, "checkout_flow", api.DecideOptions{})
		require.NoError(t, err)
		require.Equal(t, expected, actual)
	}
	assert.Positive(t, cached.bucketCache.Len())
}

func TestClient_UpdateDatafile(t *testing.T) {
	events := make(chan api.ClientEvent, 4)
	c := newTestClient(t, &Options{ClientEventHandler: events})
	<-events

	require.NoError(t, c.UpdateDatafile(revisedDatafile("74")))
	assert.Equal(t, "74", c.Config().Revision())
	event := <-events
	assert.Equal(t, api.ClientEventType_ConfigUpdated, event.EventType)

	err := c.UpdateDatafile([]byte(`{"featureFlags": `))
	require.Error(t, err)
	assert.Equal(t, "74", c.Config().Revision())
	event = <-events
	assert.Equal(t, api.ClientEventType_Error, event.EventType)

	_, err = c.Decide(test_user, "no_rules_v74", api.DecideOptions{})
	require.NoError(t, err)
}

func TestClient_ConcurrentDecideDuringUpdates(t *testing.T) {
	c := newTestClient(t, nil)
	users := make([]api.User, 50)
	expected := make([]api.Decision, len(users))
	for i := range users {
		users[i] = api.User{UserId: fmt.Sprintf("user%d", i)}
		var err error
		expected[i], err = c.Decide(users[i], "buy_button", api.DecideOptions{})
		require.NoError(t, err)
	}

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		for i := 0; i < 20; i++ {
			if err := c.UpdateDatafile(revisedDatafile(fmt.Sprint(100 + i))); err != nil {
				return err
			}
		}
		return nil
	})
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i, user := range users {
				decision, err := c.Decide(user, "buy_button", api.DecideOptions{})
				if err != nil {
					return err
				}
				if !reflect.DeepEqual(expected[i], decision) {
					return fmt.Errorf("decision for %s changed", user.UserId)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestClient_Close(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	c, err := NewClient(test_datafile, &Options{EventDispatcher: dispatcher})
	require.NoError(t, err)

	_, err = c.Decide(test_user, "buy_button", api.DecideOptions{})
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Len(t, dispatcher.events(), 1)

	_, err = c.Decide(test_user, "buy_button", api.DecideOptions{})
	require.NoError(t, err)
	err = c.CreateUserContext("user1", nil).TrackEvent("purchase", nil)
	require.ErrorIs(t, err, ErrClientClosed)
}

func BenchmarkClient_Decide(b *testing.B) {
	c := newTestClient(b, nil)
	user := api.User{UserId: "user42", Attributes: api.UserAttributes{"age": 30, "beta": true}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decide(user, "checkout_flow", api.DecideOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkClient_DecideParallel(b *testing.B) {
	c := newTestClient(b, &Options{BucketCacheSize: 1024})

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			user := api.User{UserId: fmt.Sprintf("user%d", i%1000)}
			if _, err := c.Decide(user, "buy_button", api.DecideOptions{}); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}
