package configapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// ParamSpec is one declared parameter of a category's schema, rendered by
// a thin UI (§4.4 Categories and Auto-Resolution).
type ParamSpec struct {
	Key     string `json:"key"`
	Type    string `json:"type"` // "string" | "number" | "bool"
	Default any    `json:"default,omitempty"`
}

// Category is one of the seven declared config-object categories.
type Category struct {
	Name             string
	Params           []ParamSpec
	RequiresProgram  bool
	Endpoints        []Endpoint
}

// Endpoint is one typed endpoint within a category.
type Endpoint struct {
	APIName string
	Path    string
}

// Categories is the fixed seven-category catalog (§4.4).
var Categories = []Category{
	{
		Name:            "loyalty",
		Params:          []ParamSpec{{Key: "program_id", Type: "number"}},
		RequiresProgram: true,
		Endpoints: []Endpoint{
			{APIName: "loyalty.tiers", Path: "/api/loyalty/tiers"},
			{APIName: "loyalty.rules", Path: "/api/loyalty/rules"},
		},
	},
	{
		Name:      "extended-fields",
		Endpoints: []Endpoint{{APIName: "extended_fields.list", Path: "/api/extended-fields"}},
	},
	{
		Name:            "campaigns",
		Params:          []ParamSpec{{Key: "program_id", Type: "number"}},
		RequiresProgram: true,
		Endpoints:       []Endpoint{{APIName: "campaigns.list", Path: "/api/campaigns"}},
	},
	{
		Name:            "promotions",
		Params:          []ParamSpec{{Key: "program_id", Type: "number"}},
		RequiresProgram: true,
		Endpoints:       []Endpoint{{APIName: "promotions.list", Path: "/api/promotions"}},
	},
	{
		Name:      "coupons",
		Endpoints: []Endpoint{{APIName: "coupons.list", Path: "/api/coupons"}},
	},
	{
		Name:      "audiences",
		Endpoints: []Endpoint{{APIName: "audiences.list", Path: "/api/audiences"}},
	},
	{
		Name:      "org-settings",
		Endpoints: []Endpoint{{APIName: "org_settings.get", Path: "/api/org-settings"}},
	},
}

// Program is one programs-list record, used only for program_id
// auto-resolution (§4.4: "picking the first record's id").
type Program struct {
	ID int `json:"id"`
}

// programsPath is the endpoint the orchestrator calls when a category
// requires program_id and the caller did not supply one.
const programsPath = "/api/programs"

// resolveProgramID fetches the programs list and returns the first
// record's id.
func (c *Client) resolveProgramID(ctx context.Context) (int, models.ConfigAPIRequestRecord, error) {
	var programs []Program
	record, err := c.Get(ctx, "programs.list", programsPath, nil, &programs)
	if err != nil {
		return 0, record, err
	}
	if len(programs) == 0 {
		return 0, record, fmt.Errorf("configapi: programs list is empty, cannot auto-resolve program_id")
	}
	return programs[0].ID, record, nil
}

// CategoryResult is one category's fan-out outcome.
type CategoryResult struct {
	Category string
	Items    map[string][]json.RawMessage // api_name -> decoded items
	Requests []models.ConfigAPIRequestRecord
}

// FanOutCategory runs one category's endpoints sequentially (§4.4: "within
// a category, endpoints run sequentially and a single endpoint failure
// never aborts the category"), auto-resolving program_id when the
// category requires it and params omits it.
func (c *Client) FanOutCategory(ctx context.Context, cat Category, params map[string]string) (CategoryResult, error) {
	result := CategoryResult{Category: cat.Name, Items: map[string][]json.RawMessage{}}

	if cat.RequiresProgram {
		if _, ok := params["program_id"]; !ok {
			id, record, err := c.resolveProgramID(ctx)
			result.Requests = append(result.Requests, record)
			if err != nil {
				var authErr *AuthError
				if asAuthError(err, &authErr) {
					return result, err
				}
				// program_id resolution failed; endpoints requiring it
				// below will simply run without it.
			} else {
				if params == nil {
					params = map[string]string{}
				}
				params["program_id"] = fmt.Sprint(id)
			}
		}
	}

	for _, ep := range cat.Endpoints {
		var items []json.RawMessage
		record, err := c.Get(ctx, ep.APIName, ep.Path, params, &items)
		result.Requests = append(result.Requests, record)
		if err != nil {
			var authErr *AuthError
			if asAuthError(err, &authErr) {
				return result, err // bearer-path auth failure is fatal
			}
			continue // single endpoint failure never aborts the category
		}
		result.Items[ep.APIName] = items
	}
	return result, nil
}

func asAuthError(err error, target **AuthError) bool {
	ae, ok := err.(*AuthError)
	if ok {
		*target = ae
	}
	return ok
}
