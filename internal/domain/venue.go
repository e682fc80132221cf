package domain

import "strings"

// MissingMenu marks a venue without offering text in judge prompts and API output.
const MissingMenu = "정보없음"

// VenueDocument is a venue as held by the vector index. Immutable once indexed.
type VenueDocument struct {
	ID            string
	EmbeddingText string
	Region        string
	CategoryCode  string
	BusinessHours string
}

// Candidate is a VenueDocument returned by a nearest-neighbor query together with its distance.
type Candidate struct {
	ID            string
	EmbeddingText string
	Region        string
	CategoryCode  string
	BusinessHours string
	Distance      float64
}

// VenueDetail is the full venue record joined from relational storage.
type VenueDetail struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Do            string   `json:"do,omitempty"`
	Si            string   `json:"si,omitempty"`
	Gu            string   `json:"gu,omitempty"`
	DetailAddress string   `json:"detail_address,omitempty"`
	SubCategory   string   `json:"sub_category,omitempty"`
	BusinessHour  string   `json:"business_hour,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Type          int      `json:"type"`
	Image         string   `json:"image,omitempty"`
	Latitude      *float64 `json:"lat,omitempty"`
	Longitude     *float64 `json:"lng,omitempty"`
	Menu          string   `json:"menu,omitempty"`
	ReviewCount   int      `json:"review_count"`
	AverageStars  float64  `json:"average_stars"`
}

// Address joins the non-empty administrative parts and the detail address.
func (v VenueDetail) Address() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{v.Do, v.Si, v.Gu, v.DetailAddress} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MenuOrMissing returns the menu text or MissingMenu when the venue has none.
func (v VenueDetail) MenuOrMissing() string {
	if strings.TrimSpace(v.Menu) == "" {
		return MissingMenu
	}
	return v.Menu
}

// Category labels as collected by the conversation layer.
const (
	CategoryRestaurant = "음식점"
	CategoryCafe       = "카페"
	CategoryContent    = "콘텐츠"
)

var categoryCodes = map[string]string{
	CategoryRestaurant: "0",
	CategoryCafe:       "1",
	CategoryContent:    "2",
}

// CategoryCode maps a category label to its index code. Unknown labels map to "".
func CategoryCode(label string) string {
	return categoryCodes[strings.TrimSpace(label)]
}
