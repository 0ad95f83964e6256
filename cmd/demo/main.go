// Command authd-demo exercises the identity flows end to end against
// in-memory stores: register, login, session checks, password change and
// the token-based reset flow.
package main

import (
	"context"
	"fmt"

	"github.com/avolkov/authd/internal/repository/memory"
	"github.com/avolkov/authd/internal/service"
)

func main() {
	ctx := context.Background()
	svc := service.NewIdentityService(
		memory.NewUserRepo(), memory.NewSessionRepo(), memory.NewTokenRepo(), nil, 0, 0)

	const (
		username = "kelvin"
		email    = "kelvin@example.com"
		password = "Secure123!"
	)

	fmt.Println("=== Registration ===")
	report("register", svc.Register(ctx, username, email, password))
	report("register duplicate", svc.Register(ctx, username, email, password))

	fmt.Println("=== Login ===")
	if _, err := svc.Login(ctx, username, "WrongPass1!"); err != nil {
		fmt.Println("login with wrong password:", err)
	}
	sid, err := svc.Login(ctx, username, password)
	report("login", err)
	fmt.Println("logged in:", svc.IsLoggedIn(ctx, sid))

	if u, err := svc.CurrentUser(ctx, sid); err == nil {
		fmt.Printf("current user: %s <%s>\n", u.Username, u.Email)
	}

	fmt.Println("=== Logout ===")
	report("logout", svc.Logout(ctx, sid))
	fmt.Println("logged in:", svc.IsLoggedIn(ctx, sid))

	fmt.Println("=== Password reset ===")
	tok, err := svc.RequestPasswordReset(ctx, email)
	report("request reset", err)
	report("reset password", svc.ResetPassword(ctx, tok, "NewSecure456!"))
	report("reuse token", svc.ResetPassword(ctx, tok, "Another789!"))

	if _, err := svc.Login(ctx, username, password); err != nil {
		fmt.Println("login with old password:", err)
	}
	if _, err := svc.Login(ctx, username, "NewSecure456!"); err == nil {
		fmt.Println("login with new password: ok")
	}
}

func report(op string, err error) {
	if err != nil {
		fmt.Printf("%s: %v\n", op, err)
		return
	}
	fmt.Printf("%s: ok\n", op)
}
