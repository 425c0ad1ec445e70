package middleware

import (
	"net/http"
	"sync"
	"time"

	"kindergarten_billing/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter 单个来源 IP 的限流器
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 按来源 IP 限流
type IPRateLimiter struct {
	ips map[string]*ipLimiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter 创建 IP 限流器
// r: 每秒允许的请求数 (QPS)
// b: 桶的大小 (Burst)
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		ips: make(map[string]*ipLimiter),
		r:   r,
		b:   b,
	}
	go i.cleanup()
	return i
}

// GetLimiter 获取指定 IP 的限流器
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	l, exists := i.ips[ip]
	if !exists {
		l = &ipLimiter{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

// cleanup 定期清理长时间无请求的 IP，防止 map 无界增长
func (i *IPRateLimiter) cleanup() {
	for range time.Tick(10 * time.Minute) {
		i.mu.Lock()
		for ip, l := range i.ips {
			if time.Since(l.lastSeen) > 30*time.Minute {
				delete(i.ips, ip)
			}
		}
		i.mu.Unlock()
	}
}

// 缴费接口的流量远低于抢券类场景，按家长端正常操作频率设上限
var limiter = NewIPRateLimiter(100, 200)

// RateLimitMiddleware 限流中间件
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		l := limiter.GetLimiter(ip)
		if !l.Allow() {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
