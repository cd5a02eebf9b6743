// Package tools exposes the read-only Shopify data tools to the
// reasoning loop.
//
// Every adapter returns a JSON string and never an error: the loop must
// always receive something it can reason over, so failures are encoded
// as {"error": "..."} for the model to retry, narrow, or explain.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shoplens/shoplens/internal/log"
	"github.com/shoplens/shoplens/internal/shopify"
)

// maxItemsForModel limits items shown to the model to reduce token usage.
const maxItemsForModel = 10

// Toolset holds the dependencies captured by the tool closures.
type Toolset struct {
	client *shopify.Client
	logger log.Logger
}

// NewToolset creates a Toolset around the given Shopify client.
func NewToolset(client *shopify.Client, logger log.Logger) *Toolset {
	return &Toolset{client: client, logger: logger}
}

// DataInput is the argument schema for the single-page fetch tool.
type DataInput struct {
	Endpoint string `json:"endpoint" jsonschema_description:"The API endpoint: 'orders.json', 'products.json' or 'customers.json'"`
	StoreURL string `json:"store_url" jsonschema_description:"The Shopify store URL (e.g. 'mystore.myshopify.com')"`
	Params   string `json:"params,omitempty" jsonschema_description:"Optional JSON string of query parameters (e.g. '{\"limit\": 50, \"status\": \"any\"}')"`
}

// AllDataInput is the argument schema for the all-pages fetch tool.
type AllDataInput struct {
	Endpoint string `json:"endpoint" jsonschema_description:"The API endpoint: 'orders.json', 'products.json' or 'customers.json'"`
	StoreURL string `json:"store_url" jsonschema_description:"The Shopify store URL (e.g. 'mystore.myshopify.com')"`
	Params   string `json:"params,omitempty" jsonschema_description:"Optional JSON string of query parameters"`
	MaxPages int    `json:"max_pages,omitempty" jsonschema_description:"Maximum number of pages to fetch (omit to use the configured default)"`
}

// GetData fetches one page of a resource and serializes it for the
// model, truncating long lists.
func (t *Toolset) GetData(ctx context.Context, input DataInput) string {
	resource, errJSON := t.resource(input.Endpoint)
	if errJSON != "" {
		return errJSON
	}

	params, err := paramValues(input.Params)
	if err != nil {
		return errorJSON("Invalid params JSON: %v", err)
	}

	page, err := t.client.FetchPage(ctx, input.StoreURL, resource, params, "")
	if err != nil {
		t.logger.Warn("tool fetch failed", "tool", "get_shopify_data", "error", err)
		return errorJSON("Shopify API error: %v", err)
	}

	data := page.Data
	for key, value := range data {
		list, ok := value.([]any)
		if !ok || len(list) <= maxItemsForModel {
			continue
		}
		data[key] = list[:maxItemsForModel]
		data[key+"_truncated"] = fmt.Sprintf("Showing %d of %d items", maxItemsForModel, len(list))
	}

	return marshalOutput(data)
}

// GetAllData fetches every page up to the ceiling and serializes the
// aggregate for the model, truncating long lists but keeping totals.
func (t *Toolset) GetAllData(ctx context.Context, input AllDataInput) string {
	resource, errJSON := t.resource(input.Endpoint)
	if errJSON != "" {
		return errJSON
	}

	params, err := paramValues(input.Params)
	if err != nil {
		return errorJSON("Invalid params JSON: %v", err)
	}

	agg, err := t.client.FetchAll(ctx, input.StoreURL, resource, params, input.MaxPages)
	if err != nil {
		t.logger.Warn("tool fetch failed", "tool", "get_all_shopify_data", "error", err)
		return errorJSON("Shopify API error: %v", err)
	}

	data := agg.Data
	for key, value := range data {
		list, ok := value.([]any)
		if !ok || len(list) <= maxItemsForModel {
			continue
		}
		data[key+"_total_count"] = len(list)
		data[key] = list[:maxItemsForModel]
		data[key+"_truncated"] = fmt.Sprintf(
			"Showing %d of %d items. Totals above cover the full dataset.",
			maxItemsForModel, len(list))
	}
	data["pages_fetched"] = agg.Pages

	return marshalOutput(data)
}

// resource maps a tool endpoint argument onto the client's resource
// allow-list, accepting both "orders" and "orders.json" spellings.
func (t *Toolset) resource(endpoint string) (string, string) {
	resource := strings.TrimSuffix(strings.TrimPrefix(endpoint, "/"), ".json")
	if !shopify.ValidResource(resource) {
		return "", errorJSON(
			"Invalid endpoint '%s'. Must be one of: orders.json, products.json, customers.json",
			endpoint)
	}
	return resource, ""
}

// paramValues converts the model-supplied params JSON string into query
// values. JSON numbers lose their float form for round values so that
// {"limit": 50} becomes limit=50, not limit=50.000000.
func paramValues(raw string) (url.Values, error) {
	if raw == "" {
		return nil, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	values := url.Values{}
	for key, v := range parsed {
		switch val := v.(type) {
		case string:
			values.Set(key, val)
		case float64:
			if val == math.Trunc(val) {
				values.Set(key, strconv.FormatInt(int64(val), 10))
			} else {
				values.Set(key, strconv.FormatFloat(val, 'f', -1, 64))
			}
		case bool:
			values.Set(key, strconv.FormatBool(val))
		case nil:
			// Skip explicit nulls.
		default:
			return nil, fmt.Errorf("parameter %q must be a scalar", key)
		}
	}
	return values, nil
}

// errorJSON encodes a failure as data for the reasoning loop.
func errorJSON(format string, args ...any) string {
	out, err := json.Marshal(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
	if err != nil {
		// Marshaling a map[string]string cannot fail; keep the loop
		// alive regardless.
		return `{"error": "internal tool error"}`
	}
	return string(out)
}

// marshalOutput serializes tool output, degrading to an error payload
// on unserializable data.
func marshalOutput(data map[string]any) string {
	out, err := json.Marshal(data)
	if err != nil {
		return errorJSON("failed to serialize response: %v", err)
	}
	return string(out)
}
