package recall

// ItemType classifies a knowledge item in a recall service.
type ItemType string

const (
	ItemPattern  ItemType = "pattern"
	ItemDecision ItemType = "decision"
	ItemFailure  ItemType = "failure"
)

// Result is a single knowledge item returned by a recall search.
type Result struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Score   float64  `json:"score"`
}

// Results is the ordered result list for one query, best match first.
type Results []Result
