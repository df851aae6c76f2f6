package apollo

import (
	"context"
	"net/http"

	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
)

type wireSearchRequest struct {
	PersonTitles    []string `json:"person_titles,omitempty"`
	PersonLocations []string `json:"person_locations,omitempty"`
	OrgDomains      []string `json:"q_organization_domains,omitempty"`
	Keywords        string   `json:"q_keywords,omitempty"`
	Page            int      `json:"page,omitempty"`
}

type wirePerson struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Title     string `json:"title"`
	Organization struct {
		Name       string `json:"name"`
		WebsiteURL string `json:"website_url"`
	} `json:"organization"`
}

// SearchPeople runs a people search and maps the hits to leads. A single
// page per call; the caller drives pagination through the query's Page.
func (c *Client) SearchPeople(ctx context.Context, query domain.SearchQuery) ([]domain.Lead, error) {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/mixed_people/search",
		Header: c.header(),
		Body: wireSearchRequest{
			PersonTitles:    query.Titles,
			PersonLocations: query.Locations,
			OrgDomains:      query.CompanyDomains,
			Keywords:        query.Keywords,
			Page:            query.Page,
		},
	})
	if err != nil {
		return nil, err
	}

	var found struct {
		People []wirePerson `json:"people"`
	}
	if err := resp.Decode(&found); err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, len(found.People))
	for i, person := range found.People {
		leads[i] = domain.Lead{
			Email:       person.Email,
			FirstName:   person.FirstName,
			LastName:    person.LastName,
			RoleTitle:   person.Title,
			CompanyName: person.Organization.Name,
			Website:     person.Organization.WebsiteURL,
		}
	}

	return leads, nil
}
