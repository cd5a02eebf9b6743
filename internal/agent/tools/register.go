package tools

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool names exposed to the reasoning loop.
const (
	GetDataToolName    = "get_shopify_data"
	GetAllDataToolName = "get_all_shopify_data"
)

// Register defines the toolset's tools with Genkit and returns their
// refs for ai.WithTools. The closures capture the Toolset so the tools
// stay free of package-level state.
func (t *Toolset) Register(g *genkit.Genkit) []ai.ToolRef {
	getData := genkit.DefineTool(
		g, GetDataToolName,
		"Fetch one page of orders, products, or customers from a Shopify store. "+
			"Use this for small or simple lookups.",
		func(ctx *ai.ToolContext, input DataInput) (string, error) {
			return t.GetData(ctx.Context, input), nil
		},
	)

	getAllData := genkit.DefineTool(
		g, GetAllDataToolName,
		"Fetch ALL pages of data from a paginated Shopify endpoint. "+
			"Use this when you need complete data (e.g. all orders for an aggregation). "+
			"Warning: this may take longer for large datasets.",
		func(ctx *ai.ToolContext, input AllDataInput) (string, error) {
			return t.GetAllData(ctx.Context, input), nil
		},
	)

	return []ai.ToolRef{getData, getAllData}
}
