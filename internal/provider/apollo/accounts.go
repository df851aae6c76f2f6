package apollo

import (
	"context"
	"net/http"

	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
)

type wireAccount struct {
	Name        string `json:"name"`
	Domain      string `json:"domain,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// CreateAccount creates a company record and returns the provider account ID.
func (c *Client) CreateAccount(ctx context.Context, account domain.Account) (string, error) {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/accounts",
		Header: c.header(),
		Body: wireAccount{
			Name:        account.Name,
			Domain:      account.Domain,
			PhoneNumber: account.Phone,
		},
	})
	if err != nil {
		return "", err
	}

	var created struct {
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
	}
	if err := resp.Decode(&created); err != nil {
		return "", err
	}

	return created.Account.ID, nil
}
