package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mzare/copyforge/config"
	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/utils"
	"github.com/redis/go-redis/v9"
)

// TemplateCache is a read-through redis cache in front of the prompt template
// store. Generation traffic reads the same few templates over and over; the
// admin upsert path invalidates.
type TemplateCache struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewTemplateCache creates a template cache; client may be nil when caching
// is disabled, in which case every call is a miss.
func NewTemplateCache(client *redis.Client, cfg *config.CacheConfig) *TemplateCache {
	return &TemplateCache{client: client, config: cfg}
}

func (c *TemplateCache) key(appID, templateType string) string {
	return fmt.Sprintf("%s%s:%s:%s", c.config.RedisPrefix, utils.PromptTemplateCacheKeyPrefix, appID, templateType)
}

// Get returns the cached template for (appID, templateType), or nil on miss
func (c *TemplateCache) Get(ctx context.Context, appID, templateType string) (*models.PromptTemplate, error) {
	if c.client == nil || !c.config.Enabled {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.key(appID, templateType)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var template models.PromptTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, err
	}

	return &template, nil
}

// Set stores the template under its (app, type) key
func (c *TemplateCache) Set(ctx context.Context, template *models.PromptTemplate) error {
	if c.client == nil || !c.config.Enabled {
		return nil
	}

	data, err := json.Marshal(template)
	if err != nil {
		return err
	}

	ttl := c.config.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return c.client.Set(ctx, c.key(template.AppID, template.TemplateType), data, ttl).Err()
}

// Invalidate drops the cached entry for (appID, templateType)
func (c *TemplateCache) Invalidate(ctx context.Context, appID, templateType string) error {
	if c.client == nil || !c.config.Enabled {
		return nil
	}
	return c.client.Del(ctx, c.key(appID, templateType)).Err()
}
