package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// Valid 角色是否合法
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// User 用户记录
//
// ID 由存储层分配，单调递增且删除后不复用。
// Email 全局唯一（小写归一化后比较）。
// UpdatedAt 在首次更新前为空，不出现在 JSON 输出中。
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Clone 返回记录的副本，避免调用方持有存储层内部指针
func (u *User) Clone() *User {
	c := *u
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// UserPatch 浅层字段合并补丁
//
// 仅对非 nil 字段生效（指针字段区分"未提供"和"提供了零值"）。
type UserPatch struct {
	Name  *string   `json:"name,omitempty"`
	Email *string   `json:"email,omitempty"`
	Role  *UserRole `json:"role,omitempty"`
}

// Empty 补丁是否未携带任何字段
func (p *UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil
}
