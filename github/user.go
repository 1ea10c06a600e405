package github

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// AuthenticatedUser returns the login of the token's owner. It only
// works on an authorized client.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	if !c.authorized {
		return "", fmt.Errorf("%w: no token", ErrUnauthorized)
	}

	body, err := c.get(ctx, c.baseURL.String()+"/user")
	if err != nil {
		return "", fmt.Errorf("failed to resolve authenticated user: %w", err)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := sonic.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if user.Login == "" {
		return "", fmt.Errorf("%w: empty login", ErrDecode)
	}
	return user.Login, nil
}
