package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbPoolStats) }

var dbPoolStats = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_stats",
		Help: "Current state of the database connection pool.",
	},
	[]string{"state"}, // 'total', 'idle', 'in_use'
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

// PoolStatFunc reports (total, idle, in_use) connections.
type PoolStatFunc func() (total, idle, inUse int32)

// WatchDBPool samples stat every interval until ctx is done.
func WatchDBPool(ctx context.Context, interval time.Duration, stat PoolStatFunc) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		SetDBPoolStats(stat())
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
