package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"railzway-console/shared/config"
)

type CacheManager struct {
	client *redis.Client
	ctx    context.Context
}

var (
	globalCacheManager *CacheManager
	StatusSnapshotTTL  = 30 * time.Second
	PricingCatalogTTL  = 5 * time.Minute
)

// InitCacheManager initializes the global cache manager
func InitCacheManager() error {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		log.Printf("❌ Invalid Redis DB number: %s, using default 0", cfg.RedisDB)
		redisDB = 0
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	globalCacheManager = &CacheManager{
		client: client,
		ctx:    ctx,
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, redisDB)

	return nil
}

// GetCacheManager returns the global cache manager instance
func GetCacheManager() *CacheManager {
	if globalCacheManager == nil {
		if err := InitCacheManager(); err != nil {
			log.Printf("❌ Failed to initialize cache manager: %v", err)
			return nil
		}
	}
	return globalCacheManager
}

// GenerateStatusKey generates a cache key for an org's instance snapshot
func GenerateStatusKey(orgID int64) string {
	return fmt.Sprintf("status:org:%d", orgID)
}

// SetStatusSnapshot caches the serialized instance status for an org.
// The snapshot fully replaces any previous value.
func (cm *CacheManager) SetStatusSnapshot(orgID int64, payload []byte) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	key := GenerateStatusKey(orgID)
	if err := cm.client.Set(cm.ctx, key, payload, StatusSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %v", err)
	}
	return nil
}

// GetStatusSnapshot retrieves the cached instance status for an org
func (cm *CacheManager) GetStatusSnapshot(orgID int64) ([]byte, bool) {
	if cm == nil || cm.client == nil {
		return nil, false
	}

	key := GenerateStatusKey(orgID)
	result, err := cm.client.Get(cm.ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false
		}
		log.Printf("❌ Cache error: %v", err)
		return nil, false
	}
	return result, true
}

// InvalidateStatusSnapshot drops the cached snapshot for an org
func (cm *CacheManager) InvalidateStatusSnapshot(orgID int64) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	key := GenerateStatusKey(orgID)
	if err := cm.client.Del(cm.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %v", key, err)
	}

	log.Printf("🗑️  Cache invalidated: %s", key)
	return nil
}

// SetPricingCatalog caches the billing catalog response
func (cm *CacheManager) SetPricingCatalog(v interface{}) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	jsonData, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	if err := cm.client.Set(cm.ctx, "pricing:catalog", jsonData, PricingCatalogTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %v", err)
	}

	log.Printf("🔄 Pricing catalog cached (TTL: %v)", PricingCatalogTTL)
	return nil
}

// GetPricingCatalog retrieves the cached billing catalog into out
func (cm *CacheManager) GetPricingCatalog(out interface{}) bool {
	if cm == nil || cm.client == nil {
		return false
	}

	result, err := cm.client.Get(cm.ctx, "pricing:catalog").Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("❌ Cache error: %v", err)
		}
		return false
	}

	if err := json.Unmarshal([]byte(result), out); err != nil {
		log.Printf("❌ Failed to unmarshal cache data: %v", err)
		return false
	}
	return true
}

// Close closes the cache manager connection
func (cm *CacheManager) Close() error {
	if cm != nil && cm.client != nil {
		return cm.client.Close()
	}
	return nil
}
