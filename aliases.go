package flagdecide

import (
	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/bucketing"
	"github.com/flagdecide/go-server-sdk/util"
)

type User = api.User
type UserAttributes = api.UserAttributes
type Decision = api.Decision
type DecideOptions = api.DecideOptions
type EvaluationReason = api.EvaluationReason
type PlatformData = api.PlatformData
type FlushPayload = api.FlushPayload
type UserEventsBatchRecord = api.UserEventsBatchRecord
type Config = bucketing.Config
type ParseError = bucketing.ParseError
type FlagNotFoundError = bucketing.FlagNotFoundError
type Logger = util.Logger
type DiscardLogger = util.DiscardLogger

func SetLogger(log Logger) { util.SetLogger(log) }
