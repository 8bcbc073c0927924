package friend

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Service is the slice of the API the friends page needs.
type Service interface {
	Friends(ctx context.Context) ([]Friend, error)
	FriendRequests(ctx context.Context) (Requests, error)
	SearchUsers(ctx context.Context, q string) ([]SearchUser, error)
	SendFriendRequest(ctx context.Context, userID string) error
	AcceptFriendRequest(ctx context.Context, requestID string) error
	RejectFriendRequest(ctx context.Context, requestID string) error
	RemoveFriend(ctx context.Context, userID string) error
}

// Page holds the friends list and pending requests. Every mutation is
// followed by a reload.
type Page struct {
	svc Service

	mu       sync.RWMutex
	friends  []Friend
	requests Requests
	results  []SearchUser
}

func NewPage(svc Service) *Page {
	return &Page{svc: svc}
}

// Load fetches friends and requests concurrently.
func (p *Page) Load(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		friends  []Friend
		requests Requests
		errs     [2]error
	)
	wg.Go(func() {
		friends, errs[0] = p.svc.Friends(ctx)
	})
	wg.Go(func() {
		requests, errs[1] = p.svc.FriendRequests(ctx)
	})
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("loading friends: %w", err)
		}
	}

	p.mu.Lock()
	p.friends = friends
	p.requests = requests
	p.mu.Unlock()
	return nil
}

func (p *Page) Friends() []Friend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.friends)
}

func (p *Page) Requests() Requests {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Requests{
		Received: slices.Clone(p.requests.Received),
		Sent:     slices.Clone(p.requests.Sent),
	}
}

// Search runs a user search. Short queries clear the results without
// calling the server.
func (p *Page) Search(ctx context.Context, q string) ([]SearchUser, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		p.mu.Lock()
		p.results = nil
		p.mu.Unlock()
		return nil, err
	}

	results, err := p.svc.SearchUsers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	p.mu.Lock()
	p.results = results
	p.mu.Unlock()
	return results, nil
}

// SendRequest also drops the user from the current search results.
func (p *Page) SendRequest(ctx context.Context, userID string) error {
	if err := p.svc.SendFriendRequest(ctx, userID); err != nil {
		return err
	}
	p.mu.Lock()
	p.results = slices.DeleteFunc(p.results, func(u SearchUser) bool { return u.ID == userID })
	p.mu.Unlock()
	return p.Load(ctx)
}

func (p *Page) Accept(ctx context.Context, requestID string) error {
	if err := p.svc.AcceptFriendRequest(ctx, requestID); err != nil {
		return err
	}
	return p.Load(ctx)
}

func (p *Page) Reject(ctx context.Context, requestID string) error {
	if err := p.svc.RejectFriendRequest(ctx, requestID); err != nil {
		return err
	}
	return p.Load(ctx)
}

func (p *Page) Remove(ctx context.Context, userID string) error {
	if err := p.svc.RemoveFriend(ctx, userID); err != nil {
		return err
	}
	return p.Load(ctx)
}

// ReceivedFrom finds the pending request userID sent us.
func (p *Page) ReceivedFrom(userID string) (Request, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.requests.Received {
		if r.User.ID == userID {
			return r, nil
		}
	}
	return Request{}, ErrNoRequest
}
