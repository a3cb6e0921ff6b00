package syncdex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	driverElastic = "elastic"
	driverMemory  = "memory"
)

type clientConfig struct {
	driver   string // "elastic" or "memory"
	url      string
	username string
	password string
	timeout  time.Duration

	workers         int
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration

	sortBucketsByKey bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithElastic connects to an Elasticsearch cluster.
// username may be empty when the cluster has no authentication.
func WithElastic(url, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverElastic
		c.url = url
		c.username = username
		c.password = password
	})
}

// WithMemory runs an in-process engine. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
	})
}

// WithTimeout bounds every single engine call. A timed out call is retried.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithWorkers bounds the index operations dispatched at once. Default: 8.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithRetry sets the attempt bound and the backoff curve of index operations.
// Zero values keep the defaults (5 attempts, 100ms doubling up to 5s).
func WithRetry(maxAttempts int, initial, maxInterval time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = maxAttempts
		c.initialInterval = initial
		c.maxInterval = maxInterval
	})
}

// WithSortedBuckets orders aggregation buckets by key instead of engine order.
func WithSortedBuckets() Option {
	return optionFunc(func(c *clientConfig) {
		c.sortBucketsByKey = true
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (search and sync counts and
// durations) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
