package apollo

import (
	"context"
	"net/http"
	"strings"

	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
)

// CreateContacts imports prospects as provider contacts. The endpoint is
// strictly single-item, so the batch runs with the configured chunk size
// (one) and delay, and rejections the provider marks as per-contact
// (duplicate, validation) are tallied without stopping the rest.
func (c *Client) CreateContacts(ctx context.Context, leads []domain.Lead) (connect.BatchResult, error) {
	opts := connect.BatchOptions[domain.Lead]{
		ChunkSize: c.chunkSize,
		Delay:     c.delay,
		Keep: func(l domain.Lead) bool {
			return strings.TrimSpace(l.Email) != ""
		},
		IsFatal: isFatal,
	}

	return connect.RunBatches(ctx, providerName, leads, opts,
		func(ctx context.Context, chunk []domain.Lead) (connect.BatchResult, error) {
			return c.sendContactChunk(ctx, chunk)
		})
}

func (c *Client) sendContactChunk(ctx context.Context, chunk []domain.Lead) (connect.BatchResult, error) {
	result := connect.BatchResult{RemainingQuota: -1}
	for _, lead := range chunk {
		_, err := c.exec.Do(ctx, connect.Request{
			Method: http.MethodPost,
			URL:    c.baseURL + "/contacts",
			Header: c.header(),
			Body:   toWireContact(lead),
		})
		if err != nil {
			return result, err
		}
		result.Succeeded++
		result.TotalProcessed++
	}
	return result, nil
}

// toWireContact flattens a lead into the provider's contact payload. Fields
// without a native slot go in as bracket-notation custom fields, the form
// the contact endpoint expects for account-defined attributes.
func toWireContact(lead domain.Lead) map[string]any {
	wire := map[string]any{"email": lead.Email}

	put := func(key, value string) {
		if value != "" {
			wire[key] = value
		}
	}
	put("first_name", lead.FirstName)
	put("last_name", lead.LastName)
	put("organization_name", lead.CompanyName)
	put("website_url", lead.Website)
	put("mobile_phone", lead.Phone)
	put("title", lead.RoleTitle)

	put("custom_fields[personalization]", lead.Personalization)
	for k, v := range lead.Custom {
		put("custom_fields["+k+"]", v)
	}

	return wire
}
