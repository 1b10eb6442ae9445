// Package api 路由配置
//
// 本文件定义 HTTP API 路由，将请求分发到对应的处理函数。
package api

import (
	"net/http"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health            - 服务健康检查（探针用）
//   - GET /api/v1/health     - 服务健康检查
//
// 用户管理 (User):
//   - GET    /api/v1/users       - 列出用户（?role= 过滤，?limit= 截断，默认 50）
//   - POST   /api/v1/users       - 创建用户
//   - GET    /api/v1/users/{id}  - 获取用户详情
//   - PUT    /api/v1/users/{id}  - 更新用户（浅层合并）
//   - DELETE /api/v1/users/{id}  - 删除用户
//
// WebSocket:
//   - GET    /ws/users           - 用户变更实时推送
//
// 其余路径返回 404 信封 {success:false, error:"Endpoint not found", path}。
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", h.metrics.Handler())

	// User 接口
	mux.HandleFunc("GET /api/v1/users", h.ListUsers)
	mux.HandleFunc("POST /api/v1/users", h.CreateUser)
	mux.HandleFunc("GET /api/v1/users/{id}", h.GetUser)
	mux.HandleFunc("PUT /api/v1/users/{id}", h.UpdateUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", h.DeleteUser)

	// 未匹配路径统一返回 404 信封
	mux.HandleFunc("/", h.NotFound)

	// 中间件链（从内到外）：指标 → 请求体限制 → 限流 → CORS → 安全头 → 日志 → 恢复
	var handler http.Handler = mux
	handler = h.metrics.MetricsMiddleware(handler)
	handler = h.bodyLimitMiddleware(handler)
	rl := newRateLimiter(h.cfg.RateLimit.Window, h.cfg.RateLimit.MaxRequests)
	handler = h.rateLimitMiddleware(rl, handler)
	handler = h.corsMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = h.requestLogMiddleware(handler)
	handler = h.recoveryMiddleware(handler)

	// WebSocket 绕过指标和请求体中间件（避免 http.Hijacker 问题）
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /ws/users", h.gateway.HandleWebSocket)
	topMux.Handle("/", handler)

	return topMux
}

// NotFound 未匹配路径的统一响应
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{
		Success: false,
		Error:   "Endpoint not found",
		Path:    r.URL.Path,
	})
}
