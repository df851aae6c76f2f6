package instantly

import (
	"context"
	"net/http"
	"strings"

	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
)

type wireLead struct {
	Email           string            `json:"email"`
	FirstName       string            `json:"first_name,omitempty"`
	LastName        string            `json:"last_name,omitempty"`
	CompanyName     string            `json:"company_name,omitempty"`
	Website         string            `json:"website,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	CustomVariables map[string]string `json:"custom_variables,omitempty"`
}

type bulkLeadRequest struct {
	CampaignID       string     `json:"campaign_id"`
	SkipIfInCampaign bool       `json:"skip_if_in_campaign"`
	Leads            []wireLead `json:"leads"`
}

type bulkLeadResponse struct {
	LeadsUploaded       int  `json:"leads_uploaded"`
	InBlocklist         int  `json:"in_blocklist"`
	SkippedCount        int  `json:"skipped_count"`
	InvalidEmailCount   int  `json:"invalid_email_count"`
	DuplicateEmailCount int  `json:"duplicate_email_count"`
	RemainingInPlan     *int `json:"remaining_in_plan"`
}

// AddLeads uploads leads to a campaign through the bulk endpoint, chunked to
// the provider's maximum batch size with the configured delay between
// chunks. Leads without an email never reach the wire and are not counted.
func (c *Client) AddLeads(ctx context.Context, campaignID string, leads []domain.Lead) (connect.BatchResult, error) {
	opts := connect.BatchOptions[domain.Lead]{
		ChunkSize: c.chunkSize,
		Delay:     c.delay,
		Keep: func(l domain.Lead) bool {
			return strings.TrimSpace(l.Email) != ""
		},
	}

	return connect.RunBatches(ctx, providerName, leads, opts,
		func(ctx context.Context, chunk []domain.Lead) (connect.BatchResult, error) {
			return c.sendLeadChunk(ctx, campaignID, chunk)
		})
}

func (c *Client) sendLeadChunk(ctx context.Context, campaignID string, chunk []domain.Lead) (connect.BatchResult, error) {
	body := bulkLeadRequest{
		CampaignID:       campaignID,
		SkipIfInCampaign: true,
		Leads:            make([]wireLead, len(chunk)),
	}
	for i, lead := range chunk {
		body.Leads[i] = toWireLead(lead)
	}

	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/leads/list",
		Header: c.header(),
		Body:   body,
	})
	if err != nil {
		return connect.BatchResult{}, err
	}

	var uploaded bulkLeadResponse
	if err := resp.Decode(&uploaded); err != nil {
		return connect.BatchResult{}, err
	}

	result := connect.BatchResult{
		Succeeded:      uploaded.LeadsUploaded,
		Duplicated:     uploaded.DuplicateEmailCount,
		Invalid:        uploaded.InvalidEmailCount,
		Errored:        uploaded.InBlocklist + uploaded.SkippedCount,
		TotalProcessed: len(chunk),
		RemainingQuota: -1,
	}
	if uploaded.RemainingInPlan != nil {
		result.RemainingQuota = *uploaded.RemainingInPlan
	}

	return result, nil
}

// toWireLead renames internal fields to the provider's snake_case names and
// routes fields without a native slot (personalization, role title, custom
// map) into the custom-variable side channel.
func toWireLead(lead domain.Lead) wireLead {
	wire := wireLead{
		Email:       lead.Email,
		FirstName:   lead.FirstName,
		LastName:    lead.LastName,
		CompanyName: lead.CompanyName,
		Website:     lead.Website,
		Phone:       lead.Phone,
	}

	custom := make(map[string]string, len(lead.Custom)+2)
	for k, v := range lead.Custom {
		custom[k] = v
	}
	if lead.Personalization != "" {
		custom["personalization"] = lead.Personalization
	}
	if lead.RoleTitle != "" {
		custom["role_title"] = lead.RoleTitle
	}
	if len(custom) > 0 {
		wire.CustomVariables = custom
	}

	return wire
}
