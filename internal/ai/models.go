package ai

import "context"

// Classifier is the contract for the LLM tier. Implementations must honor the
// context deadline; the orchestrator wraps calls in a circuit breaker.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
}

// Turn is one prior exchange included for context.
type Turn struct {
	Role string // "user" or "bot"
	Text string
}

// CatalogItem is a product slice offered to the model for product resolution.
type CatalogItem struct {
	Name     string
	Category string
	Price    int64
}

// ClassifyRequest carries everything the prompt builder needs.
type ClassifyRequest struct {
	CompanyName       string
	CompanyType       string
	CivilDate         string // YYYY-MM-DD in the tenant timezone
	Weekday           string
	Hours             string
	AvailableServices []string
	RecentTurns       []Turn // at most 5, oldest first
	Collected         map[string]string
	Catalog           []CatalogItem
	Message           string
}

// ProductRef is a product mention resolved by the model.
type ProductRef struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ExtractedData is the structured field set in a model response.
type ExtractedData struct {
	Date     string       `json:"date,omitempty"`
	Time     string       `json:"time,omitempty"`
	Guests   int          `json:"guests,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Service  string       `json:"service,omitempty"`
	Products []ProductRef `json:"products,omitempty"`
}

// ClassifyResult captures the structured output from the model.
type ClassifyResult struct {
	Intention      string         `json:"intention"`
	Confidence     float64        `json:"confidence"`
	Extracted      ExtractedData  `json:"extractedData"`
	MissingFields  []string       `json:"missingFields,omitempty"`
	SuggestedReply string         `json:"suggestedReply,omitempty"`
	Thinking       map[string]any `json:"thinking,omitempty"`
}
