package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/billbatista/brofinance/friend"
	"github.com/billbatista/brofinance/internal/fakeapi"
	"github.com/billbatista/brofinance/user"
)

func runFriends(ctx context.Context, a *app, args []string) error {
	sub, arg := "list", ""
	if len(args) > 0 {
		sub = args[0]
	}
	if len(args) > 1 {
		arg = args[1]
	}
	if sub != "list" && arg == "" {
		return fmt.Errorf("friends %s needs an argument", sub)
	}

	if err := a.requireSession(ctx); err != nil {
		return err
	}
	page := friend.NewPage(a.client)

	switch sub {
	case "list":
		if err := page.Load(ctx); err != nil {
			return err
		}
		printFriends(a, page)
		return nil
	case "search":
		results, err := page.Search(ctx, arg)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(a.out, "Nobody found.")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, u := range results {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.ID, u.Email)
		}
		return tw.Flush()
	case "add":
		if err := page.SendRequest(ctx, arg); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Request sent")
		return nil
	case "accept", "reject":
		if err := page.Load(ctx); err != nil {
			return err
		}
		// arg is the sender's user id or the request id itself
		requestID := arg
		if req, err := page.ReceivedFrom(arg); err == nil {
			requestID = req.ID
		}
		if sub == "accept" {
			if err := page.Accept(ctx, requestID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "You are friends now")
			return nil
		}
		if err := page.Reject(ctx, requestID); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Request rejected")
		return nil
	case "remove":
		if err := page.Remove(ctx, arg); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Friend removed")
		return nil
	}
	return fmt.Errorf("unknown friends command %q", sub)
}

func printFriends(a *app, page *friend.Page) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	friends := page.Friends()
	fmt.Fprintf(tw, "Friends (%d)\t\n", len(friends))
	for _, f := range friends {
		fmt.Fprintf(tw, "  %s\t%s\n", f.Username, f.ID)
	}
	reqs := page.Requests()
	if len(reqs.Received) > 0 {
		fmt.Fprintln(tw, "Requests received\t")
		for _, r := range reqs.Received {
			fmt.Fprintf(tw, "  %s\t%s\t(brofinance friends accept %s)\n", r.User.Name(), r.User.ID, r.User.ID)
		}
	}
	if len(reqs.Sent) > 0 {
		fmt.Fprintln(tw, "Requests sent\t")
		for _, r := range reqs.Sent {
			fmt.Fprintf(tw, "  %s\t%s\n", r.User.Name(), r.User.ID)
		}
	}
	tw.Flush()
}

func runProfile(ctx context.Context, a *app, args []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	me := a.store.Cached()

	fs := newFlagSet("profile")
	other := fs.String("user", "", "show someone else's public profile")
	username := fs.String("username", me.Username, "new username")
	cbu := fs.String("cbu", me.CBU, "bank transfer id")
	showCBU := fs.Bool("show-cbu", me.CBUVisible(), "show the CBU on the public profile")
	showEmail := fs.Bool("show-email", me.ShowEmail, "show the email on the public profile")
	avatar := fs.String("avatar", "", "upload this image as avatar")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *other != "" {
		return printPublicProfile(ctx, a, *other)
	}

	changed := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username", "cbu", "show-cbu", "show-email":
			changed = true
		}
	})
	if changed {
		in := user.ProfileUpdate{Username: *username, CBU: *cbu, ShowCBU: *showCBU, ShowEmail: *showEmail}
		if err := in.Validate(); err != nil {
			return err
		}
		u, err := a.client.UpdateProfile(ctx, in.Normalize())
		if err != nil {
			return err
		}
		if err := a.store.UpdateUser(ctx, u); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Profile updated")
	}
	if *avatar != "" {
		img, err := os.ReadFile(*avatar)
		if err != nil {
			return fmt.Errorf("reading avatar: %w", err)
		}
		u, err := a.client.UploadAvatar(ctx, filepath.Base(*avatar), img)
		if err != nil {
			return err
		}
		if err := a.store.UpdateUser(ctx, u); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Avatar uploaded: %s\n", user.AvatarURL(a.client.BaseURL(), u.AvatarURL))
	}
	if !changed && *avatar == "" {
		return runWhoami(ctx, a, nil)
	}
	return nil
}

func printPublicProfile(ctx context.Context, a *app, userID string) error {
	p, err := friend.LoadProfile(ctx, a.client, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", p.User.Username, p.Status.Status)
	if p.User.Email != "" {
		fmt.Fprintf(a.out, "email: %s\n", p.User.Email)
	}
	if p.User.CBU != "" {
		fmt.Fprintf(a.out, "cbu:   %s\n", p.User.CBU)
	}
	if debt, ok := p.DebtFrom(a.store.UserID()); ok {
		fmt.Fprintf(a.out, "You owe them %s over %d expenses\n", debt.Total.StringFixed(2), len(debt.ExpenseIDs))
	}
	if actions := p.Actions(); len(actions) > 0 {
		fmt.Fprint(a.out, "Actions:")
		for _, act := range actions {
			fmt.Fprintf(a.out, " friends %s %s;", act, userID)
		}
		fmt.Fprintln(a.out)
	}
	fmt.Fprintln(a.out)
	printExpenses(a.out, p.Expenses, a.store.UserID())
	return nil
}

func runFakeAPI(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("fake-api")
	addr := fs.String("addr", ":4000", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := []fakeapi.Option{fakeapi.WithLogger(a.logger)}
	if a.cfg.FakeSecret != "" {
		opts = append(opts, fakeapi.WithSecret(a.cfg.FakeSecret))
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           fakeapi.New(opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.logger.Info("fake api starting", "addr", *addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
