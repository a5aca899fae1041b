package BlackListRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlackListRepo remembers request tokens that were already spent.
type BlackListRepo struct {
	Client *redis.Client
}

func NewBlackListRepo(client *redis.Client) *BlackListRepo {
	return &BlackListRepo{
		Client: client,
	}
}

func (r *BlackListRepo) buildKey(tokenID string) string {
	return fmt.Sprintf("blacklist:nonce:%s", tokenID)
}

// MarkUsed blacklists tokenID until expiresAt. It returns false when the
// token was already blacklisted, so two concurrent submissions cannot both win.
func (r *BlackListRepo) MarkUsed(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	return r.Client.SetNX(ctx, r.buildKey(tokenID), "1", ttl).Result()
}
