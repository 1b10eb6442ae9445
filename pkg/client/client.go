// Package client 用户管理服务的 HTTP 客户端封装
//
// 封装层把调用意图翻译为 REST 请求，并做三件事：
//   - 把传输错误、校验错误、业务错误归一化为单一的 *APIError
//   - 对列表读取做短时缓存，任何成功变更后整体失效
//   - 在发起 Create/Update 前用与服务端相同的规则预检，
//     无效输入直接本地失败，省一次往返（服务端校验仍是权威）
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"users-admin/internal/shared/model"
	"users-admin/internal/validate"
)

// Client 用户管理 API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache
}

// Option 客户端可选配置
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCacheTTL 设置列表缓存的存活时间
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = NewCache(ttl) }
}

// New 创建客户端
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      NewCache(DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ============================================================================
// 请求/响应结构体
// ============================================================================

// envelope 服务端统一响应信封
type envelope struct {
	Success  bool                 `json:"success"`
	Data     json.RawMessage      `json:"data,omitempty"`
	Error    string               `json:"error,omitempty"`
	Details  []validate.Violation `json:"details,omitempty"`
	Message  string               `json:"message,omitempty"`
	Total    *int                 `json:"total,omitempty"`
	Returned *int                 `json:"returned,omitempty"`

	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status    string
	Timestamp string
	Version   string
	Uptime    string
}

// ListOptions 列表查询条件
type ListOptions struct {
	Role  string // 空值表示不过滤
	Limit int    // <=0 表示使用服务端默认值
}

// cacheKey 将查询条件序列化为缓存键
func (o ListOptions) cacheKey() string {
	v := url.Values{}
	if o.Role != "" {
		v.Set("role", o.Role)
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	return v.Encode()
}

// ListResult 列表查询结果
type ListResult struct {
	Users    []*model.User
	Total    int // 角色过滤后的总数
	Returned int // limit 截断后的条数
}

// clone 返回结果副本，调用方修改不会污染缓存条目
func (r *ListResult) clone() *ListResult {
	users := make([]*model.User, len(r.Users))
	for i, u := range r.Users {
		users[i] = u.Clone()
	}
	return &ListResult{Users: users, Total: r.Total, Returned: r.Returned}
}

// CreateUserRequest 创建用户的请求体
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// UpdateUserRequest 更新用户的请求体，仅非 nil 字段会被提交
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// ============================================================================
// 操作
// ============================================================================

// Health 健康检查
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return nil, err
	}
	return &HealthStatus{
		Status:    env.Status,
		Timestamp: env.Timestamp,
		Version:   env.Version,
		Uptime:    env.Uptime,
	}, nil
}

// ListUsers 获取用户列表
//
// 相同查询条件在 TTL 窗口内返回缓存结果，不发起网络请求。
func (c *Client) ListUsers(ctx context.Context, opts ListOptions) (*ListResult, error) {
	key := opts.cacheKey()
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*ListResult).clone(), nil
	}

	path := "/api/v1/users"
	if q := key; q != "" {
		path += "?" + q
	}
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var users []*model.User
	if err := json.Unmarshal(env.Data, &users); err != nil {
		return nil, &APIError{Kind: KindUnexpected, Status: http.StatusOK, Message: "malformed list payload"}
	}
	result := &ListResult{Users: users}
	if env.Total != nil {
		result.Total = *env.Total
	}
	if env.Returned != nil {
		result.Returned = *env.Returned
	}

	c.cache.Set(key, result)
	return result.clone(), nil
}

// GetUser 获取用户详情
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(env.Data)
}

// CreateUser 创建用户
//
// 先本地预检（与服务端同一套规则），无效输入不发起请求；
// 成功后整体清空列表缓存。
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
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
		return nil, validationError(v)
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v1/users", req)
	if err != nil {
		return nil, err
	}

	c.cache.Clear()
	return decodeUser(env.Data)
}

// UpdateUser 更新用户（浅层合并），成功后整体清空列表缓存
func (c *Client) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*model.User, error) {
	if v := validate.User(validate.Input{Name: req.Name, Email: req.Email, Role: req.Role}, validate.Partial); v != nil {
		return nil, validationError(v)
	}

	env, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id), req)
	if err != nil {
		return nil, err
	}

	c.cache.Clear()
	return decodeUser(env.Data)
}

// DeleteUser 删除用户，成功后整体清空列表缓存，返回删除前的记录
func (c *Client) DeleteUser(ctx context.Context, id int64) (*model.User, error) {
	env, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", id), nil)
	if err != nil {
		return nil, err
	}

	c.cache.Clear()
	return decodeUser(env.Data)
}

// ============================================================================
// 底层请求
// ============================================================================

// do 发起请求并把所有失败路径归一化为 *APIError
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, networkError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, networkError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Kind: classify(resp.StatusCode), Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &APIError{Kind: KindUnexpected, Status: resp.StatusCode, Message: "malformed response body"}
	}

	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			Kind:    classify(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: msg,
			Details: env.Details,
		}
	}
	return &env, nil
}

func decodeUser(data json.RawMessage) (*model.User, error) {
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, &APIError{Kind: KindUnexpected, Status: http.StatusOK, Message: "malformed user payload"}
	}
	return &u, nil
}
