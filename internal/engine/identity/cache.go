package identity

import (
	"sync"
	"time"

	"dzemat/internal/platform/models"
)

type cachedUser struct {
	User     *models.User
	CachedAt time.Time
}

// SuperAdminCache remembers which tenant holds a super-admin found outside
// the global tenant so the legacy tenant scan runs at most once per TTL.
type SuperAdminCache struct {
	store sync.Map // map[userID]*cachedUser
	ttl   time.Duration
}

func NewSuperAdminCache(ttl time.Duration) *SuperAdminCache {
	return &SuperAdminCache{ttl: ttl}
}

func (c *SuperAdminCache) Get(userID string) (*models.User, bool) {
	val, ok := c.store.Load(userID)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedUser)
	if time.Since(entry.CachedAt) > c.ttl {
		c.store.Delete(userID)
		return nil, false
	}

	return entry.User, true
}

func (c *SuperAdminCache) Set(user *models.User) {
	c.store.Store(user.ID, &cachedUser{User: user, CachedAt: time.Now()})
}

func (c *SuperAdminCache) Invalidate(userID string) {
	c.store.Delete(userID)
}
