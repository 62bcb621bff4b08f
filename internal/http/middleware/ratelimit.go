package middleware

import (
	"net/http"
	"sync"
	"time"

	"wordchain/internal/domain"
	"wordchain/internal/ws"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	last  time.Time
	count int
}

type rateTable struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

func newRateTable() *rateTable {
	return &rateTable{clients: make(map[string]*clientInfo)}
}

// hit counts a request for key within a fixed window and reports whether it
// went over the limit.
func (t *rateTable) hit(key string, maxRequests int, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	ci, ok := t.clients[key]
	if !ok || now.Sub(ci.last) > window {
		t.clients[key] = &clientInfo{last: now, count: 1}
		return false
	}
	ci.count++
	return ci.count > maxRequests
}

var (
	ipTable     = newRateTable()
	playerTable = newRateTable()
)

// SimpleRateLimit blocks clients that send more than maxRequests per window,
// keyed by client IP. Used where no authenticated player is available.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ipTable.hit(c.ClientIP(), maxRequests, window) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// PlayerRateLimit limits mutating room endpoints per authenticated player
// rather than per IP, so players behind one NAT do not starve each other.
func PlayerRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if v, ok := c.Get(ws.PlayerKey); ok {
			if player, ok := v.(domain.Player); ok {
				key = player.ID.String()
			}
		}
		if playerTable.hit(key, maxRequests, window) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
