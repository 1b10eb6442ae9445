// Package main 用户管理命令行前端
//
// 用法:
//
//	userctl [-addr http://localhost:8080] <command> [args]
//
// 命令:
//
//	health                     检查服务状态
//	list [role]                列出用户，可按角色过滤
//	get <id>                   查看用户详情
//	create <name> <email> [role]  创建用户
//	update <id> [-name v] [-email v] [-role v]  更新用户
//	delete <id>                删除用户（带确认）
//	watch                      交互模式
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"users-admin/internal/console"
	"users-admin/pkg/client"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API server address")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	api := client.New(*addr)
	ctrl := console.NewController(api, os.Stdout)
	ctx := context.Background()

	switch args[0] {
	case "health":
		status, err := api.Health(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Printf("status=%s version=%s uptime=%s\n", status.Status, status.Version, status.Uptime)

	case "list":
		role := ""
		if len(args) > 1 {
			role = args[1]
		}
		ctrl.SetFilter(ctx, role)

	case "get":
		id := mustID(args, 1)
		u, err := api.GetUser(ctx, id)
		if err != nil {
			fail(err)
		}
		fmt.Printf("id=%d name=%q email=%s role=%s created=%s\n",
			u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04:05"))

	case "create":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: userctl create <name> <email> [role]")
			os.Exit(2)
		}
		role := ""
		if len(args) > 3 {
			role = args[3]
		}
		ctrl.OpenNew()
		ctrl.Submit(ctx, console.Form{Name: args[1], Email: args[2], Role: role})

	case "update":
		id := mustID(args, 1)
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		name := fs.String("name", "", "new name")
		email := fs.String("email", "", "new email")
		role := fs.String("role", "", "new role")
		fs.Parse(args[2:])
		ctrl.OpenEdit(id)
		ctrl.Submit(ctx, console.Form{Name: *name, Email: *email, Role: *role})

	case "delete":
		id := mustID(args, 1)
		ctrl.RequestDelete(id)
		fmt.Printf("delete user %d? [y/N] ", id)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(line)) == "y" {
			ctrl.ConfirmDelete(ctx)
		} else {
			ctrl.CancelDelete()
			fmt.Println("cancelled")
		}

	case "watch":
		interactive(ctx, ctrl)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		os.Exit(2)
	}
}

// interactive 交互模式：r 刷新，f 过滤，n 新建，e 编辑，d 删除，q 退出
func interactive(ctx context.Context, ctrl *console.Controller) {
	ctrl.Refresh(ctx)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: r(efresh) f <role> n(ew) e <id> d <id> q(uit)")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q":
			return
		case "r":
			ctrl.Refresh(ctx)
		case "f":
			role := ""
			if len(fields) > 1 {
				role = fields[1]
			}
			ctrl.SetFilter(ctx, role)
		case "n":
			ctrl.OpenNew()
			form, ok := promptForm(scanner)
			if !ok {
				ctrl.Cancel()
				continue
			}
			ctrl.Submit(ctx, form)
		case "e":
			if len(fields) < 2 {
				fmt.Println("usage: e <id>")
				continue
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Println("id must be an integer")
				continue
			}
			ctrl.OpenEdit(id)
			form, ok := promptForm(scanner)
			if !ok {
				ctrl.Cancel()
				continue
			}
			ctrl.Submit(ctx, form)
		case "d":
			if len(fields) < 2 {
				fmt.Println("usage: d <id>")
				continue
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Println("id must be an integer")
				continue
			}
			ctrl.RequestDelete(id)
			fmt.Printf("delete user %d? [y/N] ", id)
			if scanner.Scan() && strings.TrimSpace(strings.ToLower(scanner.Text())) == "y" {
				ctrl.ConfirmDelete(ctx)
			} else {
				ctrl.CancelDelete()
			}
		default:
			fmt.Println("unknown command")
		}
	}
}

// promptForm 逐字段读取表单，空行跳过字段，单独的 "." 取消
func promptForm(scanner *bufio.Scanner) (console.Form, bool) {
	var form console.Form
	fields := []struct {
		label string
		dst   *string
	}{
		{"name", &form.Name},
		{"email", &form.Email},
		{"role", &form.Role},
	}
	for _, f := range fields {
		fmt.Printf("%s: ", f.label)
		if !scanner.Scan() {
			return form, false
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "." {
			return form, false
		}
		*f.dst = text
	}
	return form, true
}

func mustID(args []string, idx int) int64 {
	if len(args) <= idx {
		fmt.Fprintln(os.Stderr, "missing id argument")
		os.Exit(2)
	}
	id, err := strconv.ParseInt(args[idx], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "id must be an integer, got %q\n", args[idx])
		os.Exit(2)
	}
	return id
}

func fail(err error) {
	if apiErr, ok := err.(*client.APIError); ok {
		fmt.Fprintln(os.Stderr, apiErr.UserMessage())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
