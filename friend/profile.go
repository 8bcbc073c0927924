package friend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/user"
)

var ErrUserNotFound = errors.New("user not found")

// ProfileSource is the slice of the API a public profile page needs.
type ProfileSource interface {
	PublicProfile(ctx context.Context, userID string) (*user.User, error)
	ComprasWith(ctx context.Context, userID string) ([]ledger.Expense, error)
	FriendStatus(ctx context.Context, userID string) (StatusInfo, error)
}

// Profile is someone else's public page as seen by the current user.
type Profile struct {
	User     user.User
	Status   StatusInfo
	Expenses []ledger.Expense
}

// LoadProfile fetches the profile, the expenses shared with it and the
// friendship status concurrently.
func LoadProfile(ctx context.Context, src ProfileSource, userID string) (*Profile, error) {
	var (
		wg       sync.WaitGroup
		u        *user.User
		expenses []ledger.Expense
		status   StatusInfo
		errs     [3]error
	)
	wg.Go(func() { u, errs[0] = src.PublicProfile(ctx, userID) })
	wg.Go(func() { expenses, errs[1] = src.ComprasWith(ctx, userID) })
	wg.Go(func() { status, errs[2] = src.FriendStatus(ctx, userID) })
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
	}
	if u == nil || u.ID == "" || u.Username == "" {
		return nil, ErrUserNotFound
	}
	return &Profile{User: *u, Status: status, Expenses: expenses}, nil
}

// DebtFrom is what viewerID owes the profile owner over accepted expenses.
func (p *Profile) DebtFrom(viewerID string) (ledger.CreditorDebt, bool) {
	return ledger.DebtTo(p.Expenses, viewerID, p.User.ID)
}

func (p *Profile) Actions() []Action {
	return Actions(p.Status)
}
