// Package store 内存用户存储
//
// 存储层是进程内的权威数据源：按插入顺序维护用户列表，
// 并持有单调递增的 ID 计数器。无持久化，生命周期与进程一致。
//
// 所有变更（含其前置的唯一性检查）在同一个写锁临界区内完成，
// 保证 email 唯一性和 ID 单调性在并发请求下依然成立。
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/containerd/errdefs"

	"users-admin/internal/shared/model"
	"users-admin/internal/validate"
)

// Filter 列表查询条件
type Filter struct {
	Role  model.UserRole // 空值表示不过滤
	Limit int            // <=0 表示不截断
}

// Memory 内存用户存储
//
// 在启动时构造一个实例并注入 Handler，不做包级单例，
// 测试可以为每个用例创建独立实例。
type Memory struct {
	mu     sync.RWMutex
	users  []*model.User
	byID   map[int64]*model.User
	emails map[string]int64 // 归一化 email -> 用户 ID
	nextID int64
}

// New 创建空存储
func New() *Memory {
	return &Memory{
		byID:   make(map[int64]*model.User),
		emails: make(map[string]int64),
		nextID: 1,
	}
}

// Seed 写入启动种子数据
//
// 种子 email 冲突视为编程错误，直接返回错误供启动阶段 fail-fast。
func (m *Memory) Seed() error {
	seeds := []struct {
		name  string
		email string
		role  model.UserRole
	}{
		{"Admin User", "admin@example.com", model.UserRoleAdmin},
		{"John Doe", "john@example.com", model.UserRoleUser},
		{"Jane Smith", "jane@example.com", model.UserRoleUser},
	}
	for _, s := range seeds {
		if _, err := m.Insert(s.name, s.email, s.role); err != nil {
			return fmt.Errorf("seed %s: %w", s.email, err)
		}
	}
	return nil
}

// List 返回按插入顺序排列的用户列表
//
// total 为角色过滤后的总数，返回的切片按 Limit 截断。
// 返回副本，调用方可以安全修改。
func (m *Memory) List(f Filter) (users []*model.User, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		total++
		if f.Limit <= 0 || len(users) < f.Limit {
			users = append(users, u.Clone())
		}
	}
	return users, total
}

// GetByID 按 ID 查找用户
func (m *Memory) GetByID(id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errdefs.ErrNotFound)
	}
	return u.Clone(), nil
}

// Insert 创建用户并分配 ID
//
// email 唯一性检查与写入在同一临界区内，重复返回 ErrConflict。
func (m *Memory) Insert(name, email string, role model.UserRole) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalized := validate.NormalizeEmail(email)
	if _, exists := m.emails[normalized]; exists {
		return nil, fmt.Errorf("email %s: %w", normalized, errdefs.ErrConflict)
	}

	if role == "" {
		role = model.UserRoleUser
	}
	u := &model.User{
		ID:        m.nextID,
		Name:      validate.NormalizeName(name),
		Email:     normalized,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	m.nextID++
	m.users = append(m.users, u)
	m.byID[u.ID] = u
	m.emails[normalized] = u.ID

	return u.Clone(), nil
}

// Update 浅层合并补丁并刷新 UpdatedAt
//
// 若补丁携带 email 且与其他用户冲突，返回 ErrConflict 且不做任何变更。
func (m *Memory) Update(id int64, patch model.UserPatch) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errdefs.ErrNotFound)
	}

	if patch.Email != nil {
		normalized := validate.NormalizeEmail(*patch.Email)
		if owner, exists := m.emails[normalized]; exists && owner != id {
			return nil, fmt.Errorf("email %s: %w", normalized, errdefs.ErrConflict)
		}
		delete(m.emails, u.Email)
		u.Email = normalized
		m.emails[normalized] = id
	}
	if patch.Name != nil {
		u.Name = validate.NormalizeName(*patch.Name)
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	now := time.Now().UTC()
	u.UpdatedAt = &now

	return u.Clone(), nil
}

// Remove 删除用户并返回删除前的记录
//
// ID 不回收：后续 Insert 继续使用递增计数器。
func (m *Memory) Remove(id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errdefs.ErrNotFound)
	}

	delete(m.byID, id)
	delete(m.emails, u.Email)
	for i, cur := range m.users {
		if cur.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			break
		}
	}
	return u.Clone(), nil
}

// Count 当前用户数
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}
