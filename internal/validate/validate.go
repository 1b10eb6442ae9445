// Package validate 用户字段校验
//
// 服务端和客户端共用同一套规则：服务端校验是权威的，
// 客户端校验仅用于提前拦截、减少往返，不能替代服务端。
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"users-admin/internal/shared/model"
)

// Mode 校验模式
type Mode int

const (
	// Full 创建模式：必填字段缺失即违规
	Full Mode = iota
	// Partial 更新模式：只校验提供的字段
	Partial
)

const (
	NameMinLen = 2
	NameMaxLen = 50
)

// local@domain.tld，域名至少带一个点
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Violation 单条字段违规
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Input 待校验输入
//
// 指针字段区分"未提供"和"提供了空值"，Partial 模式依赖这一点。
type Input struct {
	Name  *string
	Email *string
	Role  *string
}

// User 按优先级检查字段（name → email → role），返回第一条违规
//
// 返回 nil 表示通过。
func User(in Input, mode Mode) *Violation {
	if v := checkName(in.Name, mode); v != nil {
		return v
	}
	if v := checkEmail(in.Email, mode); v != nil {
		return v
	}
	return checkRole(in.Role)
}

func checkName(name *string, mode Mode) *Violation {
	if name == nil {
		if mode == Full {
			return &Violation{Field: "name", Message: "name is required"}
		}
		return nil
	}
	// 按字符数而非字节数计长，多字节名字同样适用
	trimmed := strings.TrimSpace(*name)
	if n := utf8.RuneCountInString(trimmed); n < NameMinLen || n > NameMaxLen {
		return &Violation{Field: "name", Message: "name must be between 2 and 50 characters"}
	}
	return nil
}

func checkEmail(email *string, mode Mode) *Violation {
	if email == nil {
		if mode == Full {
			return &Violation{Field: "email", Message: "email is required"}
		}
		return nil
	}
	if !emailPattern.MatchString(strings.TrimSpace(*email)) {
		return &Violation{Field: "email", Message: "email must be a valid address"}
	}
	return nil
}

func checkRole(role *string) *Violation {
	if role == nil {
		return nil
	}
	if !model.UserRole(*role).Valid() {
		return &Violation{Field: "role", Message: `role must be "user" or "admin"`}
	}
	return nil
}

// NormalizeName 去除首尾空白
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// NormalizeEmail 去除空白并小写归一化（唯一性比较基于归一化结果）
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
