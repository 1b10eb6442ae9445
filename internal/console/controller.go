// Package console 终端前端控制器
//
// 控制器持有本地视图状态（当前过滤条件、正在编辑的用户、加载标志），
// 把用户意图转发给客户端封装层，并把结果渲染到输出流。
// 表单弹层和删除确认各自是一个小状态机，防止并发重复提交。
package console

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"users-admin/internal/shared/model"
	"users-admin/pkg/client"
)

// ModalState 表单弹层状态
//
// closed → open(new) / open(edit, id)，取消或提交成功后回到 closed。
type ModalState string

const (
	ModalClosed ModalState = "closed"
	ModalNew    ModalState = "new"
	ModalEdit   ModalState = "edit"
)

// Form 表单输入
type Form struct {
	Name  string
	Email string
	Role  string
}

// Controller 终端控制器
//
// 单线程事件驱动：所有方法应从同一个循环调用。
// loading/submitting 标志保证同一时刻至多一个列表刷新
// 和一个表单提交在途。
type Controller struct {
	api *client.Client
	out io.Writer

	roleFilter    string
	users         []*model.User
	modal         ModalState
	editingID     int64
	confirmTarget int64 // 0 表示删除确认未打开
	loading       bool
	submitting    bool
}

// NewController 创建控制器
func NewController(api *client.Client, out io.Writer) *Controller {
	return &Controller{api: api, out: out, modal: ModalClosed}
}

// ============================================================================
// 列表
// ============================================================================

// Refresh 拉取列表并重新渲染
//
// 已有一次刷新在途时，本次调用被抑制（不取消前一次）。
// 返回是否实际发起了刷新。
func (c *Controller) Refresh(ctx context.Context) bool {
	if c.loading {
		return false
	}
	c.loading = true
	defer func() { c.loading = false }()

	result, err := c.api.ListUsers(ctx, client.ListOptions{Role: c.roleFilter})
	if err != nil {
		c.toastError(err)
		return true
	}
	c.users = result.Users
	c.renderTable(result.Total, result.Returned)
	return true
}

// SetFilter 更新角色过滤条件并刷新
func (c *Controller) SetFilter(ctx context.Context, role string) {
	c.roleFilter = role
	c.Refresh(ctx)
}

// Filter 当前角色过滤条件
func (c *Controller) Filter() string {
	return c.roleFilter
}

// Users 当前视图中的用户
func (c *Controller) Users() []*model.User {
	return c.users
}

// Loading 是否有列表刷新在途
func (c *Controller) Loading() bool {
	return c.loading
}

// ============================================================================
// 表单弹层
// ============================================================================

// OpenNew 打开新建表单
func (c *Controller) OpenNew() {
	if c.modal != ModalClosed {
		return
	}
	c.modal = ModalNew
	c.editingID = 0
}

// OpenEdit 打开编辑表单
func (c *Controller) OpenEdit(id int64) {
	if c.modal != ModalClosed {
		return
	}
	c.modal = ModalEdit
	c.editingID = id
}

// Cancel 关闭表单（取消、Esc、点击遮罩等价）
func (c *Controller) Cancel() {
	c.modal = ModalClosed
	c.editingID = 0
}

// Modal 当前弹层状态
func (c *Controller) Modal() ModalState {
	return c.modal
}

// EditingID 正在编辑的用户 ID（新建时为 0）
func (c *Controller) EditingID() int64 {
	return c.editingID
}

// Submit 提交表单
//
// 同一弹层已有提交在途时本次被拒绝。成功后关闭弹层并刷新列表，
// 失败时弹层保持打开，提示文案按错误类别选取。
func (c *Controller) Submit(ctx context.Context, form Form) bool {
	if c.modal == ModalClosed || c.submitting {
		return false
	}
	c.submitting = true
	defer func() { c.submitting = false }()

	var err error
	switch c.modal {
	case ModalNew:
		_, err = c.api.CreateUser(ctx, client.CreateUserRequest{
			Name:  form.Name,
			Email: form.Email,
			Role:  form.Role,
		})
	case ModalEdit:
		req := client.UpdateUserRequest{}
		if form.Name != "" {
			req.Name = &form.Name
		}
		if form.Email != "" {
			req.Email = &form.Email
		}
		if form.Role != "" {
			req.Role = &form.Role
		}
		_, err = c.api.UpdateUser(ctx, c.editingID, req)
	}

	if err != nil {
		c.toastError(err)
		return true
	}

	if c.modal == ModalNew {
		c.toast("User created")
	} else {
		c.toast("User updated")
	}
	c.Cancel()
	c.Refresh(ctx)
	return true
}

// Submitting 是否有表单提交在途
func (c *Controller) Submitting() bool {
	return c.submitting
}

// ============================================================================
// 删除确认
// ============================================================================

// RequestDelete 打开删除确认
func (c *Controller) RequestDelete(id int64) {
	if c.confirmTarget != 0 {
		return
	}
	c.confirmTarget = id
}

// CancelDelete 关闭删除确认
func (c *Controller) CancelDelete() {
	c.confirmTarget = 0
}

// ConfirmTarget 待确认删除的用户 ID（0 表示未打开）
func (c *Controller) ConfirmTarget() int64 {
	return c.confirmTarget
}

// ConfirmDelete 执行删除并关闭确认
func (c *Controller) ConfirmDelete(ctx context.Context) {
	if c.confirmTarget == 0 {
		return
	}
	id := c.confirmTarget
	c.confirmTarget = 0

	if _, err := c.api.DeleteUser(ctx, id); err != nil {
		c.toastError(err)
		return
	}
	c.toast(fmt.Sprintf("User %d deleted", id))
	c.Refresh(ctx)
}

// ============================================================================
// 渲染
// ============================================================================

func (c *Controller) renderTable(total, returned int) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range c.users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
	fmt.Fprintf(c.out, "showing %d of %d\n", returned, total)
}

func (c *Controller) toast(msg string) {
	fmt.Fprintf(c.out, "* %s\n", msg)
}

// toastError 渲染错误提示：归一化错误用面向用户的文案
func (c *Controller) toastError(err error) {
	if apiErr, ok := err.(*client.APIError); ok {
		fmt.Fprintf(c.out, "! %s\n", apiErr.UserMessage())
		return
	}
	fmt.Fprintf(c.out, "! %s\n", err)
}
