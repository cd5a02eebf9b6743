package agent

// Result is the structured answer returned to the UI.
type Result struct {
	Text      string        `json:"text"`
	Tables    []Table       `json:"tables"`
	ChartData []ChartSeries `json:"chart_data"`
}

// Table is a titled list of homogeneous rows. The UI derives the header
// set from the first row's keys.
type Table struct {
	Title string           `json:"title,omitempty"`
	Data  []map[string]any `json:"data"`
}

// ChartSeries is a renderable data series. Type is "bar" or "line";
// the UI falls back to bar for anything else.
type ChartSeries struct {
	Type   string    `json:"type"`
	Title  string    `json:"title,omitempty"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// normalize guarantees non-nil slices so the JSON envelope always
// carries "tables" and "chart_data" arrays.
func (r *Result) normalize() *Result {
	if r.Tables == nil {
		r.Tables = []Table{}
	}
	if r.ChartData == nil {
		r.ChartData = []ChartSeries{}
	}
	return r
}
