package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/billbatista/brofinance/session"
	"github.com/billbatista/brofinance/user"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("brofinance "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// prompt reads one line from stdin when a secret was not passed as a flag.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(strings.TrimSuffix(label, ": ")), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) orPrompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return a.prompt(label)
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password, asked for when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := a.orPrompt(*password, "Password: ")
	if err != nil {
		return err
	}
	u, err := a.store.Register(ctx, *username, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Username)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password, asked for when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := a.orPrompt(*password, "Password: ")
	if err != nil {
		return err
	}
	u, err := a.store.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
	return nil
}

func runGoogle(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("google")
	code := fs.String("code", "", "authorization code from the Google redirect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *code == "" {
		return errors.New("-code is required")
	}
	u, err := a.store.LoginWithGoogle(ctx, *code)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
	if u.NeedsPasswordSetup {
		fmt.Fprintln(a.out, "Your account has no password yet, run brofinance set-password to finish it.")
	}
	return nil
}

func runSetPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("set-password")
	username := fs.String("username", "", "username, defaults to the current one")
	password := fs.String("password", "", "new password, asked for when empty")
	confirm := fs.String("confirm", "", "confirmation, asked for when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	name := *username
	if name == "" {
		name = a.store.Cached().Username
	}
	pw, err := a.orPrompt(*password, "Password: ")
	if err != nil {
		return err
	}
	again := *confirm
	if again == "" && *password == "" {
		if again, err = a.prompt("Confirm password: "); err != nil {
			return err
		}
	} else if again == "" {
		again = pw
	}
	if _, err := a.store.SetPassword(ctx, name, pw, again); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password set")
	return nil
}

func runForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("forgot-password")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.ForgotPassword(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the email is registered, a reset link is on its way.")
	return nil
}

func runResetPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("reset-password")
	userID := fs.String("user", "", "user id from the reset link")
	token := fs.String("token", "", "token from the reset link")
	password := fs.String("password", "", "new password, asked for when empty")
	confirm := fs.String("confirm", "", "confirmation, defaults to -password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := a.orPrompt(*password, "New password: ")
	if err != nil {
		return err
	}
	again := *confirm
	if again == "" {
		if *password != "" {
			again = pw
		} else if again, err = a.prompt("Confirm password: "); err != nil {
			return err
		}
	}
	if err := session.ResetPassword(ctx, a.client, *userID, *token, pw, again); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated, you can log in now.")
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if _, err := a.store.Restore(ctx); err != nil {
		return err
	}
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	u := a.store.Cached()
	fmt.Fprintf(a.out, "%s <%s>\n", u.Username, u.Email)
	fmt.Fprintf(a.out, "id:       %s\n", u.ID)
	fmt.Fprintf(a.out, "balance:  %s\n", u.Balance.StringFixed(2))
	if u.CBU != "" {
		fmt.Fprintf(a.out, "cbu:      %s\n", u.CBU)
	}
	if avatar := u.AvatarURL; avatar != "" {
		fmt.Fprintf(a.out, "avatar:   %s\n", user.AvatarURL(a.client.BaseURL(), avatar))
	}
	if u.NeedsPasswordSetup {
		fmt.Fprintln(a.out, "password: not set, run brofinance set-password")
	}
	return nil
}

func runHealth(ctx context.Context, a *app, _ []string) error {
	status, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", status.Message, status.Timestamp.Format("2006-01-02 15:04:05"))
	return nil
}
