package bucketing

import (
	"sort"

	"github.com/flagdecide/go-server-sdk/api"
)

type Rule struct {
	Id                 string              `json:"id" validate:"required"`
	Key                string              `json:"key" validate:"required"`
	LayerId            string              `json:"layerId"`
	Status             string              `json:"status"`
	AudienceIds        []string            `json:"audienceIds"`
	AudienceConditions *AudienceConditions `json:"audienceConditions"`
	BucketingSeed      string              `json:"bucketingSeed"`
	ForcedVariations   map[string]string   `json:"forcedVariations"`
	TrafficAllocation  []TrafficAllocation `json:"trafficAllocation" validate:"dive"`
	Variations         []*Variation        `json:"variations" validate:"dive,required"`

	ruleType         api.RuleType
	audience         Condition
	allocation       []allocationRange
	split            bool
	variationsByKey  map[string]*Variation
	variationsById   map[string]*Variation
	forcedVariations map[string]*Variation
}

func (r *Rule) Type() api.RuleType {
	return r.ruleType
}

// Seed returns the value prepended to the bucketing id when hashing.
func (r *Rule) Seed() string {
	if r.BucketingSeed != "" {
		return r.BucketingSeed
	}
	return r.Id
}

func (r *Rule) IsRunning() bool {
	return r.Status == "" || r.Status == RuleStatusRunning
}

// Audience returns the compiled audience condition of the rule.
func (r *Rule) Audience() Condition {
	return r.audience
}

func (r *Rule) GetVariationForKey(key string) *Variation {
	return r.variationsByKey[key]
}

// DecideTargetVariation maps a bucket value to a variation. A nil result
// means the bucket is outside every allocated range.
func (r *Rule) DecideTargetVariation(bucket int) *Variation {
	i := sort.Search(len(r.allocation), func(i int) bool {
		return bucket < r.allocation[i].end
	})
	if i == len(r.allocation) {
		return nil
	}
	return r.allocation[i].variation
}

type TrafficAllocation struct {
	EntityId   string `json:"entityId"`
	EndOfRange int    `json:"endOfRange" validate:"gte=0,lte=10000"`
}

// allocationRange covers [previous end, end).
type allocationRange struct {
	end       int
	variation *Variation
}

type Audience struct {
	Id         string              `json:"id" validate:"required"`
	Name       string              `json:"name"`
	Conditions AttributeConditions `json:"conditions"`
}

type Rollout struct {
	Id          string  `json:"id" validate:"required"`
	Experiments []*Rule `json:"experiments" validate:"dive,required"`
}
