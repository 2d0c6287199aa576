package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlushPayload_AddBatchRecordForUser(t *testing.T) {
	fp := &FlushPayload{}
	u := User{UserId: "u1"}
	fp.AddBatchRecordForUser(UserEventsBatchRecord{User: u, Events: []Event{{Type_: EventType_Decision}, {Type_: EventType_Decision}, {Type_: EventType_Conversion}}}, 2)
	require.Len(t, fp.Records, 2)
	require.Equal(t, 3, fp.EventCount)

	fp.AddBatchRecordForUser(UserEventsBatchRecord{User: u, Events: []Event{{Type_: EventType_Conversion}}}, 2)
	require.Len(t, fp.Records, 2)
	require.Len(t, fp.Records[0].Events, 3)
	require.Equal(t, 4, fp.EventCount)

	fp.AddBatchRecordForUser(UserEventsBatchRecord{User: User{UserId: "u2"}, Events: []Event{{Type_: EventType_Decision}}}, 2)
	require.Len(t, fp.Records, 3)
}

func TestEventQueueOptions_CheckBounds(t *testing.T) {
	o := EventQueueOptions{MaxEventQueueSize: 10, FlushEventQueueSize: 100000}
	o.CheckBounds()
	require.Equal(t, 10000, o.MaxEventQueueSize)
	require.Equal(t, 50000, o.FlushEventQueueSize)
	require.Equal(t, 100, o.EventRequestChunkSize)
	require.Equal(t, 3, o.MaxFlushRetries)

	require.True(t, (&EventQueueOptions{DisableAutomaticEventLogging: true}).IsEventLoggingDisabled(EventType_Decision))
	require.False(t, (&EventQueueOptions{DisableAutomaticEventLogging: true}).IsEventLoggingDisabled(EventType_Conversion))
}

func TestDecideOptions_Merge(t *testing.T) {
	merged := DecideOptions{IncludeReasons: true}.Merge(DecideOptions{DisableDecisionEvent: true})
	require.Equal(t, DecideOptions{IncludeReasons: true, DisableDecisionEvent: true}, merged)
}

func TestUser_BucketingId(t *testing.T) {
	require.Equal(t, "u1", User{UserId: "u1"}.BucketingId())
	require.Equal(t, "b1", User{UserId: "u1", Attributes: UserAttributes{BucketingIDAttribute: "b1"}}.BucketingId())
	require.Equal(t, "u1", User{UserId: "u1", Attributes: UserAttributes{BucketingIDAttribute: 7}}.BucketingId())
}

func TestChunkSlice(t *testing.T) {
	require.Equal(t, [][]int{{1, 2}, {3}}, ChunkSlice([]int{1, 2, 3}, 2))
	require.Nil(t, ChunkSlice([]int{}, 2))
}
