package instantly

import (
	"context"
	"net/http"

	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
	"github.com/fabotse/tdec-prospect-sub000/internal/richtext"
)

// The wire format numbers delays by the step that precedes the wait: a
// step's "delay" is the days to wait before the *next* step. The internal
// model stores the wait before each step, so the two are offset by one and
// the final step's wire delay is always zero.

type wireVariant struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type wireStep struct {
	Type     string        `json:"type"`
	Delay    int           `json:"delay"`
	Variants []wireVariant `json:"variants"`
}

type wireSequence struct {
	Steps []wireStep `json:"steps"`
}

type wireCampaign struct {
	Name      string         `json:"name"`
	Sequences []wireSequence `json:"sequences"`
}

// CreateCampaign creates a campaign with its email sequence and returns the
// provider campaign ID. Step bodies are converted from plain text to the
// provider's HTML representation; placeholders are left for the provider's
// renderer.
func (c *Client) CreateCampaign(ctx context.Context, campaign domain.Campaign) (string, error) {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/campaigns",
		Header: c.header(),
		Body:   toWireCampaign(campaign),
	})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// GetCampaign reads a campaign back, converting wire HTML bodies to plain
// text and forward delays back to per-step waits.
func (c *Client) GetCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/campaigns/" + id,
		Header: c.header(),
	})
	if err != nil {
		return domain.Campaign{}, err
	}

	var wire wireCampaign
	if err := resp.Decode(&wire); err != nil {
		return domain.Campaign{}, err
	}

	return fromWireCampaign(wire), nil
}

func toWireCampaign(campaign domain.Campaign) wireCampaign {
	steps := make([]wireStep, len(campaign.Steps))
	for i, step := range campaign.Steps {
		forwardDelay := 0
		if i < len(campaign.Steps)-1 {
			forwardDelay = campaign.Steps[i+1].DelayDays
		}

		steps[i] = wireStep{
			Type:  "email",
			Delay: forwardDelay,
			Variants: []wireVariant{{
				Subject: step.Subject,
				Body:    richtext.ToHTML(step.Body),
			}},
		}
	}

	return wireCampaign{
		Name:      campaign.Name,
		Sequences: []wireSequence{{Steps: steps}},
	}
}

func fromWireCampaign(wire wireCampaign) domain.Campaign {
	campaign := domain.Campaign{Name: wire.Name}
	if len(wire.Sequences) == 0 {
		return campaign
	}

	steps := wire.Sequences[0].Steps
	campaign.Steps = make([]domain.SequenceStep, len(steps))
	for i, step := range steps {
		delayDays := 0
		if i > 0 {
			delayDays = steps[i-1].Delay
		}

		var subject, body string
		if len(step.Variants) > 0 {
			subject = step.Variants[0].Subject
			body = richtext.ToPlain(step.Variants[0].Body)
		}

		campaign.Steps[i] = domain.SequenceStep{
			Subject:   subject,
			Body:      body,
			DelayDays: delayDays,
		}
	}

	return campaign
}
