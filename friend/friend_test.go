package friend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	friends  []Friend
	requests Requests
	calls    []string
	failWith error
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) Friends(context.Context) ([]Friend, error) {
	f.record("friends")
	return f.friends, f.failWith
}

func (f *fakeService) FriendRequests(context.Context) (Requests, error) {
	f.record("requests")
	return f.requests, nil
}

func (f *fakeService) SearchUsers(_ context.Context, q string) ([]SearchUser, error) {
	f.record("search " + q)
	return []SearchUser{{ID: "u2", Username: "bob"}, {ID: "u3", Username: "bobby"}}, nil
}

func (f *fakeService) SendFriendRequest(_ context.Context, id string) error {
	f.record("send " + id)
	return nil
}

func (f *fakeService) AcceptFriendRequest(_ context.Context, id string) error {
	f.record("accept " + id)
	f.mu.Lock()
	f.requests.Received = nil
	f.friends = append(f.friends, Friend{ID: "u4", Username: "dave"})
	f.mu.Unlock()
	return nil
}

func (f *fakeService) RejectFriendRequest(_ context.Context, id string) error {
	f.record("reject " + id)
	return errors.New("request not found")
}

func (f *fakeService) RemoveFriend(_ context.Context, id string) error {
	f.record("remove " + id)
	return nil
}

func TestActions(t *testing.T) {
	tests := []struct {
		info StatusInfo
		want []Action
	}{
		{info: StatusInfo{Status: StatusNone}, want: []Action{ActionAdd}},
		{info: StatusInfo{Status: StatusPendingSent}},
		{info: StatusInfo{Status: StatusPendingReceived, RequestID: "r1"}, want: []Action{ActionAccept, ActionReject}},
		{info: StatusInfo{Status: StatusPendingReceived}},
		{info: StatusInfo{Status: StatusFriend}, want: []Action{ActionRemove}},
		{info: StatusInfo{Status: StatusSelf}},
	}
	for _, tt := range tests {
		t.Run(string(tt.info.Status), func(t *testing.T) {
			assert.Equal(t, tt.want, Actions(tt.info))
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	q, err := NormalizeQuery("  bo ")
	require.NoError(t, err)
	assert.Equal(t, "bo", q)

	_, err = NormalizeQuery(" b ")
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestPage_Load(t *testing.T) {
	svc := &fakeService{
		friends:  []Friend{{ID: "u1", Username: "alice"}},
		requests: Requests{Received: []Request{{ID: "r1", User: ledger.Party{ID: "u4", Username: "dave"}}}},
	}
	p := NewPage(svc)
	require.NoError(t, p.Load(context.Background()))

	assert.Len(t, p.Friends(), 1)
	assert.Len(t, p.Requests().Received, 1)

	r, err := p.ReceivedFrom("u4")
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)

	_, err = p.ReceivedFrom("u9")
	assert.ErrorIs(t, err, ErrNoRequest)
}

func TestPage_LoadError(t *testing.T) {
	svc := &fakeService{failWith: errors.New("boom")}
	err := NewPage(svc).Load(context.Background())
	assert.ErrorContains(t, err, "loading friends: boom")
}

func TestPage_MutationsReload(t *testing.T) {
	svc := &fakeService{requests: Requests{Received: []Request{{ID: "r1", User: ledger.Party{ID: "u4"}}}}}
	p := NewPage(svc)
	ctx := context.Background()

	require.NoError(t, p.Accept(ctx, "r1"))
	assert.Equal(t, "accept r1", svc.calls[0])
	assert.Len(t, p.Friends(), 1)
	assert.Empty(t, p.Requests().Received)

	svc.calls = nil
	assert.Error(t, p.Reject(ctx, "r9"))
	assert.Equal(t, []string{"reject r9"}, svc.calls)
}

func TestPage_SearchAndSend(t *testing.T) {
	svc := &fakeService{}
	p := NewPage(svc)
	ctx := context.Background()

	_, err := p.Search(ctx, "b")
	assert.ErrorIs(t, err, ErrQueryTooShort)
	assert.Empty(t, svc.calls)

	results, err := p.Search(ctx, " bob ")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	require.NoError(t, p.SendRequest(ctx, "u2"))
	p.mu.RLock()
	assert.Equal(t, []SearchUser{{ID: "u3", Username: "bobby"}}, p.results)
	p.mu.RUnlock()
}

type fakeProfiles struct {
	user     *user.User
	expenses []ledger.Expense
	status   StatusInfo
}

func (f fakeProfiles) PublicProfile(context.Context, string) (*user.User, error) {
	return f.user, nil
}

func (f fakeProfiles) ComprasWith(context.Context, string) ([]ledger.Expense, error) {
	return f.expenses, nil
}

func (f fakeProfiles) FriendStatus(context.Context, string) (StatusInfo, error) {
	return f.status, nil
}

func TestLoadProfile(t *testing.T) {
	bob := ledger.Party{ID: "bob", Username: "bob"}
	me := ledger.Party{ID: "me", Username: "me"}
	src := fakeProfiles{
		user: &user.User{ID: "bob", Username: "bob", CBU: "0000003100010000000001"},
		expenses: []ledger.Expense{
			{ID: "c1", Creditor: bob, Debtor: me, DebtorShare: decimal.NewFromInt(40), State: ledger.StateAccepted},
			{ID: "c2", Creditor: bob, Debtor: me, DebtorShare: decimal.NewFromInt(10), State: ledger.StatePending},
		},
		status: StatusInfo{Status: StatusFriend},
	}

	p, err := LoadProfile(context.Background(), src, "bob")
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionRemove}, p.Actions())

	debt, ok := p.DebtFrom("me")
	require.True(t, ok)
	assert.Equal(t, "40", debt.Total.String())
	assert.Equal(t, []string{"c1"}, debt.ExpenseIDs)

	src.user = &user.User{}
	_, err = LoadProfile(context.Background(), src, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
