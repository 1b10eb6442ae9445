// Package api 用户管理接口
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/containerd/errdefs"

	"users-admin/internal/shared/model"
	"users-admin/internal/store"
	"users-admin/internal/validate"
)

// DefaultListLimit 列表接口的默认返回上限
const DefaultListLimit = 50

// ============================================================================
// 请求结构体
// ============================================================================

// CreateUserRequest 创建用户的请求体
type CreateUserRequest struct {
	Name  string `json:"name"`            // 用户名（必填，2-50 字符）
	Email string `json:"email"`           // 邮箱（必填，全局唯一）
	Role  string `json:"role,omitempty"`  // 角色（可选，默认 user）
}

// UpdateUserRequest 更新用户的请求体
//
// 指针字段区分"未提供"和"提供了空值"，仅合并提供的字段。
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// ============================================================================
// User 接口处理函数
// ============================================================================

// ListUsers 获取用户列表
//
// 路由: GET /api/v1/users
//
// 查询参数：
//   - role: 按角色过滤（user/admin），缺省不过滤
//   - limit: 返回条数上限，默认 50
//
// 响应: 200，total 为过滤后总数，returned 为截断后条数
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{Limit: DefaultListLimit}

	if role := r.URL.Query().Get("role"); role != "" {
		if !model.UserRole(role).Valid() {
			writeValidationError(w, &validate.Violation{Field: "role", Message: `role must be "user" or "admin"`})
			return
		}
		filter.Role = model.UserRole(role)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeValidationError(w, &validate.Violation{Field: "limit", Message: "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	users, total := h.store.List(filter)
	if users == nil {
		users = []*model.User{}
	}
	returned := len(users)
	writeJSON(w, http.StatusOK, Envelope{
		Success:  true,
		Data:     users,
		Total:    &total,
		Returned: &returned,
	})
}

// GetUser 获取用户详情
//
// 路由: GET /api/v1/users/{id}
//
// 响应:
//   - 200: 用户记录
//   - 400: id 不是整数
//   - 404: 用户不存在
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	u, err := h.store.GetByID(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// CreateUser 创建用户
//
// 路由: POST /api/v1/users
//
// 响应:
//   - 201: 创建的用户记录（含 created_at）
//   - 400: 请求体格式错误或字段校验失败（details 携带违规字段）
//   - 409: 邮箱已存在
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// 未提供的字段以 nil 进入校验，报"缺失"而不是"格式错误"
	var in validate.Input
	if req.Name != "" {
		in.Name = &req.Name
	}
	if req.Email != "" {
		in.Email = &req.Email
	}
	if req.Role != "" {
		in.Role = &req.Role
	}
	if v := validate.User(in, validate.Full); v != nil {
		writeValidationError(w, v)
		return
	}

	u, err := h.store.Insert(req.Name, req.Email, model.UserRole(req.Role))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.log.WithUserID(u.ID).Info("user created", "email", u.Email)
	h.broadcast(EventUserCreated, u)
	writeData(w, http.StatusCreated, u)
}

// UpdateUser 更新用户
//
// 路由: PUT /api/v1/users/{id}
//
// 仅合并请求体中提供的字段（浅层合并），成功后刷新 updated_at。
// 未携带任何字段的请求体不做变更，直接返回当前记录。
//
// 响应:
//   - 200: 合并后的用户记录
//   - 400: id 不是整数 / 字段校验失败
//   - 404: 用户不存在
//   - 409: 邮箱与其他用户冲突
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if v := validate.User(validate.Input{Name: req.Name, Email: req.Email, Role: req.Role}, validate.Partial); v != nil {
		writeValidationError(w, v)
		return
	}

	patch := model.UserPatch{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := model.UserRole(*req.Role)
		patch.Role = &role
	}

	// 空补丁是空操作：返回当前记录，不刷新 updated_at，不广播
	if patch.Empty() {
		u, err := h.store.GetByID(id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeData(w, http.StatusOK, u)
		return
	}

	u, err := h.store.Update(id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.log.WithUserID(u.ID).Info("user updated")
	h.broadcast(EventUserUpdated, u)
	writeData(w, http.StatusOK, u)
}

// DeleteUser 删除用户
//
// 路由: DELETE /api/v1/users/{id}
//
// 删除不是幂等操作：重复删除同一 id 返回 404，不返回第二次成功。
//
// 响应:
//   - 200: 删除前的用户记录
//   - 400: id 不是整数
//   - 404: 用户不存在
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	u, err := h.store.Remove(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.log.WithUserID(u.ID).Info("user deleted")
	h.broadcast(EventUserDeleted, u)
	writeData(w, http.StatusOK, u)
}

// ============================================================================
// 辅助函数
// ============================================================================

// parseID 解析路径中的用户 ID，非整数返回 400
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}

// writeStoreError 将存储层错误按类别映射为 HTTP 状态
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errdefs.IsNotFound(err):
		writeError(w, http.StatusNotFound, "User not found")
	case errdefs.IsConflict(err):
		writeError(w, http.StatusConflict, "Email already exists")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
