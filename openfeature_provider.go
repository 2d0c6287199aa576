package flagdecide

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/open-feature/go-sdk/pkg/openfeature"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

// Provider implements the OpenFeature FeatureProvider interface. A plain flag
// key resolves the decision itself: booleans to Enabled and strings to the
// variation key. A "flag.variable" key resolves a variable of the flag.
type Provider struct {
	Client *Client
}

// Metadata returns the metadata of the provider
func (p Provider) Metadata() openfeature.Metadata {
	return openfeature.Metadata{Name: "flagdecide-go-provider"}
}

// BooleanEvaluation returns a boolean flag
func (p Provider) BooleanEvaluation(ctx context.Context, flag string, defaultValue bool, evalCtx openfeature.FlattenedContext) openfeature.BoolResolutionDetail {
	res := p.resolve(flag, evalCtx)
	if res.err != nil {
		return openfeature.BoolResolutionDetail{Value: defaultValue, ProviderResolutionDetail: res.detail}
	}
	if res.variableKey == "" {
		return openfeature.BoolResolutionDetail{Value: res.decision.Enabled, ProviderResolutionDetail: res.detail}
	}
	value, ok := res.value.(bool)
	if !ok {
		return openfeature.BoolResolutionDetail{Value: defaultValue, ProviderResolutionDetail: typeMismatch(res, "bool")}
	}
	return openfeature.BoolResolutionDetail{Value: value, ProviderResolutionDetail: res.detail}
}

// StringEvaluation returns a string flag
func (p Provider) StringEvaluation(ctx context.Context, flag string, defaultValue string, evalCtx openfeature.FlattenedContext) openfeature.StringResolutionDetail {
	res := p.resolve(flag, evalCtx)
	if res.err != nil {
		return openfeature.StringResolutionDetail{Value: defaultValue, ProviderResolutionDetail: res.detail}
	}
	if res.variableKey == "" {
		return openfeature.StringResolutionDetail{Value: res.decision.VariationKey, ProviderResolutionDetail: res.detail}
	}
	value, ok := res.value.(string)
	if !ok {
		return openfeature.StringResolutionDetail{Value: defaultValue, ProviderResolutionDetail: typeMismatch(res, "string")}
	}
	return openfeature.StringResolutionDetail{Value: value, ProviderResolutionDetail: res.detail}
}

// FloatEvaluation returns a float variable. Integer variables are widened.
func (p Provider) FloatEvaluation(ctx context.Context, flag string, defaultValue float64, evalCtx openfeature.FlattenedContext) openfeature.FloatResolutionDetail {
	res := p.resolve(flag, evalCtx)
	if res.err != nil {
		return openfeature.FloatResolutionDetail{Value: defaultValue, ProviderResolutionDetail: res.detail}
	}
	switch value := res.value.(type) {
	case float64:
		return openfeature.FloatResolutionDetail{Value: value, ProviderResolutionDetail: res.detail}
	case int64:
		return openfeature.FloatResolutionDetail{Value: float64(value), ProviderResolutionDetail: res.detail}
	}
	return openfeature.FloatResolutionDetail{Value: defaultValue, ProviderResolutionDetail: typeMismatch(res, "float")}
}

// IntEvaluation returns an integer variable
func (p Provider) IntEvaluation(ctx context.Context, flag string, defaultValue int64, evalCtx openfeature.FlattenedContext) openfeature.IntResolutionDetail {
	res := p.resolve(flag, evalCtx)
	if res.err != nil {
		return openfeature.IntResolutionDetail{Value: defaultValue, ProviderResolutionDetail: res.detail}
	}
	value, ok := res.value.(int64)
	if !ok {
		return openfeature.IntResolutionDetail{Value: defaultValue, ProviderResolutionDetail: typeMismatch(res, "integer")}
	}
	return openfeature.IntResolutionDetail{Value: value, ProviderResolutionDetail: res.detail}
}

// ObjectEvaluation returns a variable of any type, or all of the flag's
// variables for a plain flag key.
func (p Provider) ObjectEvaluation(ctx context.Context, flag string, defaultValue interface{}, evalCtx openfeature.FlattenedContext) openfeature.InterfaceResolutionDetail {
	res := p.resolve(flag, evalCtx)
	if res.err != nil {
		return openfeature.InterfaceResolutionDetail{Value: defaultValue, ProviderResolutionDetail: res.detail}
	}
	if res.variableKey == "" {
		return openfeature.InterfaceResolutionDetail{Value: res.decision.Variables, ProviderResolutionDetail: res.detail}
	}
	return openfeature.InterfaceResolutionDetail{Value: res.value, ProviderResolutionDetail: res.detail}
}

// Hooks returns hooks
func (p Provider) Hooks() []openfeature.Hook {
	return []openfeature.Hook{}
}

type resolution struct {
	decision    api.Decision
	variableKey string
	value       interface{}
	detail      openfeature.ProviderResolutionDetail
	err         error
}

func (p Provider) resolve(key string, evalCtx openfeature.FlattenedContext) resolution {
	user, err := createUserFromEvaluationContext(evalCtx)
	if err != nil {
		return resolution{err: err, detail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTargetingKeyMissingResolutionError(err.Error()), Reason: openfeature.ErrorReason,
		}}
	}

	flagKey, variableKey := p.splitKey(key)
	decision, err := p.Client.Decide(user, flagKey, api.DecideOptions{})
	if err != nil {
		var notFound *FlagNotFoundError
		resolutionError := openfeature.NewGeneralResolutionError(err.Error())
		if errors.As(err, &notFound) {
			resolutionError = openfeature.NewFlagNotFoundResolutionError(err.Error())
		}
		return resolution{err: err, detail: openfeature.ProviderResolutionDetail{
			ResolutionError: resolutionError, Reason: openfeature.ErrorReason,
		}}
	}

	res := resolution{
		decision:    decision,
		variableKey: variableKey,
		detail: openfeature.ProviderResolutionDetail{
			Reason:  reasonFor(decision.Reason),
			Variant: decision.VariationKey,
		},
	}
	if variableKey == "" {
		return res
	}
	value, ok := decision.Variables[variableKey]
	if !ok {
		res.err = fmt.Errorf("variable %q not found on flag %q", variableKey, flagKey)
		res.detail = openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewFlagNotFoundResolutionError(res.err.Error()), Reason: openfeature.ErrorReason,
		}
		return res
	}
	res.value = value
	return res
}

// splitKey separates "flag.variable". A key naming an existing flag is never
// split, so flag keys may contain dots.
func (p Provider) splitKey(key string) (flagKey, variableKey string) {
	if _, ok := p.Client.Config().Flag(key); ok {
		return key, ""
	}
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

func typeMismatch(res resolution, expected string) openfeature.ProviderResolutionDetail {
	return openfeature.ProviderResolutionDetail{
		ResolutionError: openfeature.NewTypeMismatchResolutionError(
			fmt.Sprintf("variable %q is %T, expected %s", res.variableKey, res.value, expected)),
		Reason: openfeature.ErrorReason,
	}
}

func reasonFor(reason api.EvaluationReason) openfeature.Reason {
	switch reason {
	case api.EvaluationReasonTargetingMatch, api.EvaluationReasonForced:
		return openfeature.TargetingMatchReason
	case api.EvaluationReasonSplit:
		return openfeature.SplitReason
	case api.EvaluationReasonDefault:
		return openfeature.DefaultReason
	default:
		return openfeature.UnknownReason
	}
}

func createUserFromEvaluationContext(evalCtx openfeature.FlattenedContext) (api.User, error) {
	userId := ""
	if id, ok := evalCtx["userId"].(string); ok {
		userId = id
	} else if id, ok := evalCtx[openfeature.TargetingKey].(string); ok {
		userId = id
	}

	if userId == "" {
		return api.User{}, errors.New("userId or targetingKey must be provided")
	}
	user := api.User{
		UserId:     userId,
		Attributes: make(api.UserAttributes),
	}

	for key, value := range evalCtx {
		if key == "userId" || key == openfeature.TargetingKey {
			continue
		}
		setAttributeValue(user.Attributes, key, value)
	}

	return user, nil
}

func setAttributeValue(attributes api.UserAttributes, key string, val interface{}) {
	if val == nil {
		return
	}
	// Conditions only compare strings, bools and numbers; load the ones we
	// can and ignore the rest with warnings
	switch v := val.(type) {
	case string, bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		attributes[key] = v
	default:
		util.Warnf("Unsupported type for user attribute value: %s=%v", key, val)
	}
}
