package cache

import (
	"strconv"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
)

const (
	keySeparator  = ":"
	generationKey = "gen"
	// memcached rejects longer keys
	maxKeyLength = 250
)

var ErrBadKey = errors.New("cache key is not storable")

type MemcacheClient struct {
	client *memcache.Client
}

type config interface {
	Hosts() []string
}

func NewMemcache(config config) (*MemcacheClient, error) {
	logger.Info("memcached hosts", zap.Strings("hosts", config.Hosts()))
	mc := memcache.New(config.Hosts()...)
	return &MemcacheClient{mc}, mc.Ping()
}

func formatKey(parts ...string) (string, error) {
	key := strings.Join(parts, keySeparator)
	if len(key) > maxKeyLength {
		return "", ErrBadKey
	}
	for _, r := range key {
		if r <= ' ' || r == 0x7f {
			return "", ErrBadKey
		}
	}
	return key, nil
}

// generation returns the current report generation of a user. Invalidation
// bumps it, so older entries become unreachable and expire on their own.
func (mc *MemcacheClient) generation(userID string) (string, error) {
	key, err := formatKey(generationKey, userID)
	if err != nil {
		return "", err
	}
	item, err := mc.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

// ReportKey names the entry of a report under the user's current generation.
// Callers take the key before reading the records the report is built from,
// so a report computed from older records never lands under a newer generation.
func (mc *MemcacheClient) ReportKey(userID, option string) (string, error) {
	gen, err := mc.generation(userID)
	if err != nil {
		return "", errors.Wrap(err, "report generation")
	}
	return formatKey(userID, gen, option)
}

func (mc *MemcacheClient) CacheReport(key string, report string) error {
	logger.Info("cache report", zap.String("key", key))
	return mc.client.Set(&memcache.Item{
		Key:   key,
		Value: []byte(report)},
	)
}

func (mc *MemcacheClient) GetReport(key string) (string, error) {
	logger.Info("get report from cache", zap.String("key", key))
	item, err := mc.client.Get(key)
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (mc *MemcacheClient) InvalidateCache(userID string) error {
	logger.Info("invalidate cache", zap.String("userID", userID))
	key, err := formatKey(generationKey, userID)
	if err != nil {
		return err
	}

	_, err = mc.client.Increment(key, 1)
	if !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	err = mc.client.Add(&memcache.Item{Key: key, Value: []byte(strconv.Itoa(1))})
	if errors.Is(err, memcache.ErrNotStored) {
		// raced with another invalidation, which already moved the generation
		return nil
	}
	return err
}
