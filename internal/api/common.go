// Package api 提供 HTTP API 处理器
//
// 本包实现用户管理服务的 RESTful API，包括：
//   - 用户管理（User）接口
//   - 健康检查接口
//   - WebSocket 变更推送
//
// 文件组织：
//   - common.go: 通用工具函数、响应信封和 Handler 定义
//   - users.go: 用户相关接口
//   - middleware.go: 中间件（恢复、日志、CORS、限流、安全头、请求体限制）
//   - metrics.go: Prometheus 指标
//   - events.go: WebSocket 变更网关
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"users-admin/internal/config"
	"users-admin/internal/shared/model"
	"users-admin/internal/store"
	"users-admin/internal/validate"
	"users-admin/pkg/logging"
)

// Version API 版本号，体现在健康检查响应中
const Version = "1.0.0"

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，持有注入的存储实例、
// 配置、日志器、指标和变更网关。
type Handler struct {
	store     *store.Memory
	cfg       *config.Config
	log       *logging.Logger
	metrics   *Metrics
	gateway   *EventGateway
	startedAt time.Time
}

// NewHandler 创建 Handler 实例
//
// 存储实例由调用方构造并注入，便于测试隔离。
func NewHandler(st *store.Memory, cfg *config.Config, log *logging.Logger) *Handler {
	h := &Handler{
		store:     st,
		cfg:       cfg,
		log:       log,
		metrics:   NewMetrics("users_admin"),
		startedAt: time.Now(),
	}
	h.gateway = NewEventGateway(h.metrics)
	return h
}

// Envelope 统一 JSON 响应信封
//
// 所有端点（含错误路径）都返回该结构，字段按需出现。
type Envelope struct {
	Success  bool                 `json:"success"`
	Data     any                  `json:"data,omitempty"`
	Error    string               `json:"error,omitempty"`
	Details  []validate.Violation `json:"details,omitempty"`
	Message  string               `json:"message,omitempty"`
	Path     string               `json:"path,omitempty"`
	Total    *int                 `json:"total,omitempty"`
	Returned *int                 `json:"returned,omitempty"`

	// 健康检查专用字段
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeData 写入成功信封
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// writeError 写入错误信封
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

// writeValidationError 写入携带字段明细的校验错误
func writeValidationError(w http.ResponseWriter, v *validate.Violation) {
	writeJSON(w, http.StatusBadRequest, Envelope{
		Success: false,
		Error:   "Validation failed",
		Details: []validate.Violation{*v},
	})
}

// Health 健康检查接口
//
// 路由: GET /health, GET /api/v1/health
//
// 进程存活期间恒为成功。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{
		Success:   true,
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// broadcast 记录变更指标并推送变更事件
func (h *Handler) broadcast(eventType string, u *model.User) {
	h.metrics.RecordMutation(eventType, h.store.Count())
	if h.gateway != nil {
		h.gateway.Broadcast(eventType, u)
	}
}
