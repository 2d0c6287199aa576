package bucketing

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/flagdecide/go-server-sdk/api"
)

// BucketCache memoizes Bucket results. It only ever returns what Bucket would
// compute, so decisions are identical with or without it. A nil *BucketCache
// computes every bucket directly.
type BucketCache struct {
	cache *lru.Cache
}

func NewBucketCache(size int) (*BucketCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &BucketCache{cache: cache}, nil
}

type bucketKey struct {
	seed        string
	bucketingId string
}

func (c *BucketCache) Bucket(bucketingId, bucketingSeed string) int {
	if c == nil {
		return Bucket(bucketingId, bucketingSeed)
	}
	key := bucketKey{seed: bucketingSeed, bucketingId: bucketingId}
	if v, ok := c.cache.Get(key); ok {
		return v.(int)
	}
	bucket := Bucket(bucketingId, bucketingSeed)
	c.cache.Add(key, bucket)
	return bucket
}

// Decide is Decide with bucket memoization.
func (c *BucketCache) Decide(config *Config, flagKey string, user api.User, options api.DecideOptions) (api.Decision, error) {
	return decide(config, flagKey, user, options, c)
}

func (c *BucketCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
