package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GormChecker checks the relational database behind a GORM handle
type GormChecker struct {
	db *gorm.DB
}

// NewGormChecker creates a database health checker
func NewGormChecker(db *gorm.DB) *GormChecker {
	return &GormChecker{db: db}
}

// Check pings the underlying connection
func (c *GormChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Status:      StatusHealthy,
		LastChecked: start,
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("database handle unavailable: %v", err)
		check.Duration = time.Since(start)
		return check
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("database ping failed: %v", err)
	}

	check.Duration = time.Since(start)
	return check
}

// RedisChecker checks Redis connectivity
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a Redis health checker
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Check pings the Redis server
func (c *RedisChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Status:      StatusHealthy,
		LastChecked: start,
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("redis ping failed: %v", err)
	}

	check.Duration = time.Since(start)
	return check
}

// HTTPChecker checks reachability of an upstream HTTP endpoint.
// An unreachable upstream degrades the service rather than failing it;
// the application keeps working from cache while the upstream is down.
type HTTPChecker struct {
	url    string
	client *http.Client
}

// NewHTTPChecker creates an upstream endpoint checker
func NewHTTPChecker(url string, timeout time.Duration) *HTTPChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Check issues a HEAD request against the endpoint
func (c *HTTPChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Status:      StatusHealthy,
		LastChecked: start,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("invalid endpoint: %v", err)
		check.Duration = time.Since(start)
		return check
	}

	resp, err := c.client.Do(req)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("endpoint unreachable: %v", err)
		check.Duration = time.Since(start)
		return check
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("endpoint returned %d", resp.StatusCode)
	}

	check.Duration = time.Since(start)
	return check
}
