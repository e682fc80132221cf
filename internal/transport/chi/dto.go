package chi

import (
	"strconv"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// ErrorCode is a machine-readable error code in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecommendRequest is the body of POST /api/v1/recommendations.
type RecommendRequest struct {
	Region           string              `json:"region"`
	PeopleCount      int                 `json:"people_count"`
	Categories       []string            `json:"categories,omitempty"`
	CollectedTags    map[string][]string `json:"collected_tags"`
	RandomCategories []string            `json:"random_categories,omitempty"`
}

// RecommendResponse maps each category to its venues.
type RecommendResponse struct {
	RequestID       string                 `json:"request_id"`
	Recommendations map[string][]VenueItem `json:"recommendations"`
}

// VenueItem is a venue as presented to clients.
type VenueItem struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	ImageURL      string  `json:"image_url,omitempty"`
	Address       string  `json:"address,omitempty"`
	DetailAddress string  `json:"detail_address,omitempty"`
	SubCategory   string  `json:"sub_category,omitempty"`
	BusinessHour  string  `json:"business_hour,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Menu          string  `json:"menu"`
	Lat           *string `json:"lat"`
	Lng           *string `json:"lng"`
	ReviewCount   int     `json:"review_count"`
	AverageStars  float64 `json:"average_stars"`
}

// SuggestRequest is the body of POST /api/v1/suggestions.
type SuggestRequest struct {
	Keyword       string          `json:"keyword"`
	Region        string          `json:"region"`
	Category      string          `json:"category"`
	PeopleCount   int             `json:"people_count"`
	NResults      int             `json:"n_results"`
	Enhance       bool            `json:"use_ai_enhancement"`
	Weights       *domain.Weights `json:"weights,omitempty"`
	MinSimilarity *float64        `json:"min_similarity,omitempty"`
}

// SuggestResponse lists ranked suggestions before detail join and judge filtering.
type SuggestResponse struct {
	Items []SuggestionItem `json:"items"`
	Total int              `json:"total"`
}

// SuggestionItem is one ranked suggestion.
type SuggestionItem struct {
	StoreID     string                `json:"store_id"`
	Score       float64               `json:"similarity_score"`
	Scores      domain.ScoreBreakdown `json:"scores"`
	Document    string                `json:"document"`
	SearchQuery string                `json:"search_query"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func venueToItem(v domain.VenueDetail) VenueItem {
	return VenueItem{
		ID:            v.ID,
		Title:         v.Name,
		ImageURL:      v.Image,
		Address:       v.Address(),
		DetailAddress: v.DetailAddress,
		SubCategory:   v.SubCategory,
		BusinessHour:  v.BusinessHour,
		Phone:         v.Phone,
		Menu:          v.MenuOrMissing(),
		Lat:           coordString(v.Latitude),
		Lng:           coordString(v.Longitude),
		ReviewCount:   v.ReviewCount,
		AverageStars:  v.AverageStars,
	}
}

func coordString(c *float64) *string {
	if c == nil {
		return nil
	}
	s := strconv.FormatFloat(*c, 'f', -1, 64)
	return &s
}

func suggestionToItem(s domain.RankedSuggestion) SuggestionItem {
	return SuggestionItem{
		StoreID:     s.VenueID,
		Score:       s.Breakdown.Fused,
		Scores:      s.Breakdown,
		Document:    s.EmbeddingText,
		SearchQuery: s.SearchQuery,
	}
}
