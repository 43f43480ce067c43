package types

// Recipe is one suggested dish as returned by the analyze endpoint
type Recipe struct {
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	IngredientsUsed  []string `json:"ingredients_used"`
	Steps            []string `json:"steps"`
}

// AnalysisResponse is the body of a successful POST /analyze
type AnalysisResponse struct {
	Ingredients []string `json:"ingredients"`
	Recipes     []Recipe `json:"recipes"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error messages used in ErrorResponse.Error
const (
	ErrMsgNoImage         = "No image uploaded"
	ErrMsgImageTooLarge   = "Image too large"
	ErrMsgUnsupportedType = "Unsupported media type"
	ErrMsgRateLimited     = "rate limit exceeded"
	ErrMsgAnalysisFailed  = "Analysis failed"
	ErrMsgInternal        = "Internal Server Error"
)
