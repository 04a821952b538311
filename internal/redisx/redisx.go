package redisx

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

type Client struct { Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
    rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
    return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
    return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

// Get returns "" with a nil error when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
    v, err := c.Rdb.Get(ctx, key).Result()
    if errors.Is(err, redis.Nil) { return "", nil }
    return v, err
}

func (c *Client) Set(ctx context.Context, key string, val string, ttl time.Duration) error {
    return c.Rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error) {
    return c.Rdb.SetNX(ctx, key, val, ttl).Result()
}

var delIfEquals = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// DelIfEquals deletes key only while it still holds val, so a lock that
// expired and was taken by someone else is left alone.
func (c *Client) DelIfEquals(ctx context.Context, key string, val string) error {
    return delIfEquals.Run(ctx, c.Rdb, []string{key}, val).Err()
}
