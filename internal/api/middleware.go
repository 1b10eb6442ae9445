// Package api HTTP 中间件
//
// 中间件从外到内依次为：恢复 → 请求日志 → 安全头 → CORS →
// 限流 → 请求体限制 → 指标 → 路由。
package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// recoveryMiddleware 捕获处理函数中的 panic，保证错误响应仍是 JSON 信封
//
// 错误详情仅在开发环境下随响应返回。
func (h *Handler) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error("panic recovered", "panic", rec, "path", r.URL.Path)
				env := Envelope{Success: false, Error: "Internal server error"}
				if h.cfg.IsDevelopment() {
					env.Message = toString(rec)
				}
				writeJSON(w, http.StatusInternalServerError, env)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unexpected fault"
}

// requestLogMiddleware 记录每个请求的方法、路径、状态和耗时
func (h *Handler) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		h.log.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP(r))
	})
}

// securityHeadersMiddleware 设置保守的默认响应头
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware 按来源白名单添加 CORS 头
//
// 只有白名单内的 Origin 才能跨域读取响应；其余请求照常处理，
// 但不带 CORS 头（浏览器侧会拒绝读取）。
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(h.cfg.CORS.AllowedOrigins))
	for _, o := range h.cfg.CORS.AllowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bodyLimitMiddleware 限制请求体大小，超限时 JSON 解码会失败并返回 400
func (h *Handler) bodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// 限流
// ============================================================================

// rateLimiter 按客户端地址的固定窗口计数器
type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	buckets map[string]*rateBucket
}

type rateBucket struct {
	start time.Time
	count int
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	return &rateLimiter{
		window:  window,
		max:     max,
		buckets: make(map[string]*rateBucket),
	}
}

// allow 判断该客户端是否还在配额内
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.start) >= rl.window {
		// 顺带清理过期桶，避免地址数无限增长
		if len(rl.buckets) > 1024 {
			for k, old := range rl.buckets {
				if now.Sub(old.start) >= rl.window {
					delete(rl.buckets, k)
				}
			}
		}
		rl.buckets[key] = &rateBucket{start: now, count: 1}
		return true
	}
	if b.count >= rl.max {
		return false
	}
	b.count++
	return true
}

// rateLimitMiddleware 超出窗口配额的请求返回 429
func (h *Handler) rateLimitMiddleware(rl *rateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP 提取客户端地址（不含端口）
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
