package domain

import "time"

// CareLevel describes how much attention a plant needs
type CareLevel string

const (
	CareEasy   CareLevel = "Easy"
	CareMedium CareLevel = "Medium"
	CareHard   CareLevel = "Hard"
)

// LightRequirement describes the light a plant prefers
type LightRequirement string

const (
	LightLow    LightRequirement = "Low Light"
	LightMedium LightRequirement = "Medium Light"
	LightBright LightRequirement = "Bright Light"
	LightDirect LightRequirement = "Direct Sunlight"
)

// WateringFrequency describes how often a plant should be watered
type WateringFrequency string

const (
	WaterWeekly   WateringFrequency = "Weekly"
	WaterBiWeekly WateringFrequency = "Bi-weekly"
	WaterMonthly  WateringFrequency = "Monthly"
	WaterAsNeeded WateringFrequency = "As needed"
)

// Defaults applied to fields omitted at creation time or missing on read
const (
	DefaultCareLevel         = CareEasy
	DefaultLightRequirement  = LightMedium
	DefaultWateringFrequency = WaterWeekly
	DefaultHeight            = "Medium"
	DefaultImageURL          = "https://via.placeholder.com/300x300?text=Plant+Image"
)

// AllCategories is the sentinel category filter that matches every plant
const AllCategories = "all"

var (
	CareLevels          = []CareLevel{CareEasy, CareMedium, CareHard}
	LightRequirements   = []LightRequirement{LightLow, LightMedium, LightBright, LightDirect}
	WateringFrequencies = []WateringFrequency{WaterWeekly, WaterBiWeekly, WaterMonthly, WaterAsNeeded}
)

// SuggestedCategories is the curated tag vocabulary offered by forms.
// Plants may carry tags outside of it.
var SuggestedCategories = []string{
	"Indoor", "Outdoor", "Succulent", "Air Purifying", "Home Decor",
	"Low Maintenance", "Flowering", "Foliage", "Herb", "Cactus",
}

// Plant is one sellable catalog item
type Plant struct {
	ID                string            `json:"_id"`
	Name              string            `json:"name"`
	Price             float64           `json:"price"` // price in main currency units (INR)
	Categories        []string          `json:"categories"`
	StockAvailable    bool              `json:"stockAvailable"`
	Description       string            `json:"description,omitempty"`
	ImageURL          string            `json:"imageUrl"`
	CareLevel         CareLevel         `json:"careLevel"`
	LightRequirement  LightRequirement  `json:"lightRequirement"`
	WateringFrequency WateringFrequency `json:"wateringFrequency"`
	Height            string            `json:"height"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with p
func (p Plant) Clone() Plant {
	if p.Categories != nil {
		p.Categories = append([]string(nil), p.Categories...)
	}
	return p
}

// HasCategory reports whether the plant is tagged with exactly tag
func (p Plant) HasCategory(tag string) bool {
	for _, c := range p.Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// Stats summarizes the plants matching a filter
type Stats struct {
	Count       int     `json:"count"`
	InStock     int     `json:"inStock"`
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	MeanPrice   float64 `json:"meanPrice"`
	MedianPrice float64 `json:"medianPrice"`
}
