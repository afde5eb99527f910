// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. It stays nil when Redis is not
// configured, in which case listing updates only fan out locally.
var Rdb *redis.Client

// listingChannel carries games_list_update notifications between instances.
const listingChannel = "uno_listing_updates"

// Connect initializes the global client and verifies the connection.
func Connect(ctx context.Context, addr string, db int) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishListingUpdate announces a room-listing change to every instance.
// A nil client makes this a no-op.
func PublishListingUpdate(ctx context.Context) error {
	if Rdb == nil {
		return nil
	}
	if err := Rdb.Publish(ctx, listingChannel, "update").Err(); err != nil {
		return fmt.Errorf("failed to publish listing update: %w", err)
	}
	return nil
}

// SubscribeListingUpdates invokes fn for every listing change published by
// any instance, until ctx is cancelled. It runs its receive loop in a
// goroutine and returns immediately.
func SubscribeListingUpdates(ctx context.Context, fn func()) {
	if Rdb == nil {
		return
	}
	sub := Rdb.Subscribe(ctx, listingChannel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()
}
