package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/billbatista/brofinance/friend"
)

func (c *Client) Friends(ctx context.Context) ([]friend.Friend, error) {
	env, err := do[[]friend.Friend](ctx, c, http.MethodGet, "/friends", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) FriendRequests(ctx context.Context) (friend.Requests, error) {
	env, err := do[friend.Requests](ctx, c, http.MethodGet, "/friends/requests", nil)
	if err != nil {
		return friend.Requests{}, err
	}
	return env.Data, nil
}

func (c *Client) FriendStatus(ctx context.Context, userID string) (friend.StatusInfo, error) {
	env, err := do[friend.StatusInfo](ctx, c, http.MethodGet, "/friends/status/"+pathEscape(userID), nil)
	if err != nil {
		return friend.StatusInfo{}, err
	}
	return env.Data, nil
}

func (c *Client) SearchUsers(ctx context.Context, q string) ([]friend.SearchUser, error) {
	env, err := do[[]friend.SearchUser](ctx, c, http.MethodGet, "/friends/search?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, userID string) error {
	_, err := do[any](ctx, c, http.MethodPost, "/friends/request", map[string]string{"userId": userID})
	return err
}

func (c *Client) AcceptFriendRequest(ctx context.Context, requestID string) error {
	_, err := do[any](ctx, c, http.MethodPatch, "/friends/requests/"+pathEscape(requestID)+"/accept", struct{}{})
	return err
}

func (c *Client) RejectFriendRequest(ctx context.Context, requestID string) error {
	_, err := do[any](ctx, c, http.MethodPatch, "/friends/requests/"+pathEscape(requestID)+"/reject", struct{}{})
	return err
}

func (c *Client) RemoveFriend(ctx context.Context, userID string) error {
	_, err := do[any](ctx, c, http.MethodDelete, "/friends/"+pathEscape(userID), nil)
	return err
}
