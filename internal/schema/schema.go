package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/talkincode/plantcatalog/internal/domain"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// Patch is a candidate plant where nil means "not provided".
// It is both the decoded request body on the server and the request body
// sent by the client.
type Patch struct {
	Name              *string   `json:"name,omitempty"`
	Price             *float64  `json:"price,omitempty"`
	Categories        *[]string `json:"categories,omitempty"`
	StockAvailable    *bool     `json:"stockAvailable,omitempty"`
	Description       *string   `json:"description,omitempty"`
	ImageURL          *string   `json:"imageUrl,omitempty"`
	CareLevel         *string   `json:"careLevel,omitempty"`
	LightRequirement  *string   `json:"lightRequirement,omitempty"`
	WateringFrequency *string   `json:"wateringFrequency,omitempty"`
	Height            *string   `json:"height,omitempty"`

	// coercion failures collected by DecodePatch
	decodeErrs []FieldError
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("carelevel", enumValidator(domain.CareLevels))
	_ = v.RegisterValidation("light", enumValidator(domain.LightRequirements))
	_ = v.RegisterValidation("watering", enumValidator(domain.WateringFrequencies))
	return v
}

func enumValidator[T ~string](values []T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if string(v) == s {
				return true
			}
		}
		return false
	}
}

func enumMessage[T ~string](label string, values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return fmt.Sprintf("%s must be one of: %s", label, strings.Join(parts, ", "))
}

type fieldRule struct {
	field    string
	tag      string
	messages map[string]string
}

var (
	nameRule = fieldRule{"name", fmt.Sprintf("required,max=%d", MaxNameLength), map[string]string{
		"required": "Plant name is required",
		"max":      fmt.Sprintf("Plant name cannot exceed %d characters", MaxNameLength),
	}}
	priceRule = fieldRule{"price", "gte=0", map[string]string{
		"gte": "Price cannot be negative",
	}}
	categoriesRule = fieldRule{"categories", "min=1,dive,required", map[string]string{
		"min":      "At least one category is required",
		"required": "Categories cannot contain empty values",
	}}
	descriptionRule = fieldRule{"description", fmt.Sprintf("max=%d", MaxDescriptionLength), map[string]string{
		"max": fmt.Sprintf("Description cannot exceed %d characters", MaxDescriptionLength),
	}}
	careLevelRule = fieldRule{"careLevel", "omitempty,carelevel", map[string]string{
		"carelevel": enumMessage("Care level", domain.CareLevels),
	}}
	lightRule = fieldRule{"lightRequirement", "omitempty,light", map[string]string{
		"light": enumMessage("Light requirement", domain.LightRequirements),
	}}
	wateringRule = fieldRule{"wateringFrequency", "omitempty,watering", map[string]string{
		"watering": enumMessage("Watering frequency", domain.WateringFrequencies),
	}}
)

const (
	msgPriceRequired      = "Price is required"
	msgPriceNumber        = "Price must be a number"
	msgCategoriesRequired = "At least one category is required"
)

func (r fieldRule) check(verr *ValidationError, value interface{}) {
	if verr.Has(r.field) {
		return
	}
	err := validate.Var(value, r.tag)
	if err == nil {
		return
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		if msg, ok := r.messages[ves[0].Tag()]; ok {
			verr.Add(r.field, msg)
			return
		}
	}
	verr.Add(r.field, fmt.Sprintf("%s is invalid", r.field))
}

// DecodePatch converts a loosely typed JSON object into a Patch.
// Values are coerced the way the catalog always accepted them: numeric
// strings for price, "true"/"false" for the stock flag, a bare string for a
// single category. Values that cannot be coerced are reported by the
// Validate methods. Unknown keys and server-assigned fields are ignored.
func DecodePatch(body map[string]interface{}) Patch {
	var p Patch
	fail := func(field, msg string) {
		p.decodeErrs = append(p.decodeErrs, FieldError{Field: field, Message: msg})
	}
	str := func(key, label string) *string {
		raw, ok := body[key]
		if !ok {
			return nil
		}
		if raw == nil {
			s := ""
			return &s
		}
		switch raw.(type) {
		case map[string]interface{}, []interface{}:
			fail(key, label+" must be text")
			return nil
		}
		s, err := cast.ToStringE(raw)
		if err != nil {
			fail(key, label+" must be text")
			return nil
		}
		return &s
	}

	p.Name = str("name", "Plant name")
	p.Description = str("description", "Description")
	p.ImageURL = str("imageUrl", "Image URL")
	p.CareLevel = str("careLevel", "Care level")
	p.LightRequirement = str("lightRequirement", "Light requirement")
	p.WateringFrequency = str("wateringFrequency", "Watering frequency")
	p.Height = str("height", "Height")

	if raw, ok := body["price"]; ok {
		switch raw.(type) {
		case nil:
			fail("price", msgPriceRequired)
		case bool, map[string]interface{}, []interface{}:
			fail("price", msgPriceNumber)
		default:
			if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
				fail("price", msgPriceRequired)
				break
			}
			f, err := cast.ToFloat64E(raw)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				fail("price", msgPriceNumber)
				break
			}
			p.Price = &f
		}
	}

	if raw, ok := body["categories"]; ok {
		var tags []string
		switch v := raw.(type) {
		case nil:
			tags = []string{}
		case string:
			tags = []string{v}
		case []interface{}:
			for _, item := range v {
				s, err := cast.ToStringE(item)
				if err != nil || item == nil {
					fail("categories", "Categories must be a list of text tags")
					break
				}
				tags = append(tags, s)
			}
			if tags == nil {
				tags = []string{}
			}
		default:
			fail("categories", "Categories must be a list of text tags")
		}
		if !hasDecodeErr(p.decodeErrs, "categories") {
			p.Categories = &tags
		}
	}

	if raw, ok := body["stockAvailable"]; ok && raw != nil {
		b, err := cast.ToBoolE(raw)
		if err != nil {
			fail("stockAvailable", "Stock availability must be true or false")
		} else {
			p.StockAvailable = &b
		}
	}
	return p
}

func hasDecodeErr(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// sanitized trims text fields and collapses duplicate tags
func (p Patch) sanitized() Patch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		t := strings.TrimSpace(*s)
		return &t
	}
	p.Name = trim(p.Name)
	p.Description = trim(p.Description)
	p.ImageURL = trim(p.ImageURL)
	p.CareLevel = trim(p.CareLevel)
	p.LightRequirement = trim(p.LightRequirement)
	p.WateringFrequency = trim(p.WateringFrequency)
	p.Height = trim(p.Height)
	if p.Categories != nil {
		tags := NormalizeTags(*p.Categories)
		p.Categories = &tags
	}
	return p
}

// NormalizeTags trims every tag and drops repeats, keeping first-seen order.
// Empty tags are kept so validation can report them.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ValidateCreate checks a full candidate record
func (p Patch) ValidateCreate() error {
	return p.validate(true)
}

// ValidateUpdate checks only the provided fields
func (p Patch) ValidateUpdate() error {
	return p.validate(false)
}

func (p Patch) validate(create bool) error {
	p = p.sanitized()
	verr := &ValidationError{}
	for _, fe := range p.decodeErrs {
		verr.Add(fe.Field, fe.Message)
	}

	switch {
	case p.Name != nil:
		nameRule.check(verr, *p.Name)
	case create:
		verr.Add("name", nameRule.messages["required"])
	}

	switch {
	case p.Price != nil:
		priceRule.check(verr, *p.Price)
	case create:
		verr.Add("price", msgPriceRequired)
	}

	switch {
	case p.Categories != nil:
		categoriesRule.check(verr, *p.Categories)
	case create:
		verr.Add("categories", msgCategoriesRequired)
	}

	if p.Description != nil {
		descriptionRule.check(verr, *p.Description)
	}
	if p.CareLevel != nil {
		careLevelRule.check(verr, *p.CareLevel)
	}
	if p.LightRequirement != nil {
		lightRule.check(verr, *p.LightRequirement)
	}
	if p.WateringFrequency != nil {
		wateringRule.check(verr, *p.WateringFrequency)
	}
	return verr.OrNil()
}

// NewPlant builds a record from a validated create patch, filling defaults
// for omitted fields. Identifier and timestamps are left for the store.
func (p Patch) NewPlant() domain.Plant {
	p = p.sanitized()
	plant := domain.Plant{StockAvailable: true}
	p.apply(&plant)
	return Normalize(plant)
}

// Apply merges the provided fields into dst
func (p Patch) Apply(dst *domain.Plant) {
	p.sanitized().apply(dst)
}

func (p Patch) apply(dst *domain.Plant) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Categories != nil {
		dst.Categories = append([]string(nil), (*p.Categories)...)
	}
	if p.StockAvailable != nil {
		dst.StockAvailable = *p.StockAvailable
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.ImageURL != nil {
		dst.ImageURL = *p.ImageURL
	}
	if p.CareLevel != nil {
		dst.CareLevel = domain.CareLevel(*p.CareLevel)
	}
	if p.LightRequirement != nil {
		dst.LightRequirement = domain.LightRequirement(*p.LightRequirement)
	}
	if p.WateringFrequency != nil {
		dst.WateringFrequency = domain.WateringFrequency(*p.WateringFrequency)
	}
	if p.Height != nil {
		dst.Height = *p.Height
	}
}

// Empty reports whether no field was provided
func (p Patch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Categories == nil &&
		p.StockAvailable == nil && p.Description == nil && p.ImageURL == nil &&
		p.CareLevel == nil && p.LightRequirement == nil &&
		p.WateringFrequency == nil && p.Height == nil && len(p.decodeErrs) == 0
}

// Normalize fills defaults that older or partially written documents may
// lack. It is applied to every record read from a store.
func Normalize(p domain.Plant) domain.Plant {
	p = p.Clone()
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.ImageURL == "" {
		p.ImageURL = domain.DefaultImageURL
	}
	if p.CareLevel == "" {
		p.CareLevel = domain.DefaultCareLevel
	}
	if p.LightRequirement == "" {
		p.LightRequirement = domain.DefaultLightRequirement
	}
	if p.WateringFrequency == "" {
		p.WateringFrequency = domain.DefaultWateringFrequency
	}
	if p.Height == "" {
		p.Height = domain.DefaultHeight
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	return p
}
