package schema

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/plantcatalog/internal/domain"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	return verr.Map()
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
		want map[string]string
	}{
		{
			name: "minimal",
			body: map[string]interface{}{"name": "Aloe Vera", "price": 199.0, "categories": []interface{}{"Indoor", "Succulent"}},
		},
		{
			name: "price as text",
			body: map[string]interface{}{"name": "Aloe Vera", "price": "199", "categories": "Indoor"},
		},
		{
			name: "empty body",
			body: map[string]interface{}{},
			want: map[string]string{
				"name":       "Plant name is required",
				"price":      "Price is required",
				"categories": "At least one category is required",
			},
		},
		{
			name: "negative price",
			body: map[string]interface{}{"name": "Aloe", "price": -5.0, "categories": []interface{}{"Indoor"}},
			want: map[string]string{"price": "Price cannot be negative"},
		},
		{
			name: "price not a number",
			body: map[string]interface{}{"name": "Aloe", "price": "cheap", "categories": []interface{}{"Indoor"}},
			want: map[string]string{"price": "Price must be a number"},
		},
		{
			name: "blank name",
			body: map[string]interface{}{"name": "   ", "price": 1.0, "categories": []interface{}{"Indoor"}},
			want: map[string]string{"name": "Plant name is required"},
		},
		{
			name: "long name",
			body: map[string]interface{}{"name": string(make([]byte, 101)), "price": 1.0, "categories": []interface{}{"Indoor"}},
			want: map[string]string{"name": "Plant name cannot exceed 100 characters"},
		},
		{
			name: "empty categories",
			body: map[string]interface{}{"name": "Aloe", "price": 1.0, "categories": []interface{}{}},
			want: map[string]string{"categories": "At least one category is required"},
		},
		{
			name: "blank tag",
			body: map[string]interface{}{"name": "Aloe", "price": 1.0, "categories": []interface{}{"Indoor", " "}},
			want: map[string]string{"categories": "Categories cannot contain empty values"},
		},
		{
			name: "bad enum",
			body: map[string]interface{}{"name": "Aloe", "price": 1.0, "categories": []interface{}{"Indoor"}, "careLevel": "Trivial"},
			want: map[string]string{"careLevel": "Care level must be one of: Easy, Medium, Hard"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodePatch(tt.body).ValidateCreate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			if diff := cmp.Diff(tt.want, fieldsOf(t, err)); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateUpdateOnlyChecksProvided(t *testing.T) {
	assert.NoError(t, DecodePatch(map[string]interface{}{"price": 10}).ValidateUpdate())
	assert.NoError(t, DecodePatch(map[string]interface{}{}).ValidateUpdate())

	fields := fieldsOf(t, DecodePatch(map[string]interface{}{"name": ""}).ValidateUpdate())
	assert.Equal(t, "Plant name is required", fields["name"])

	fields = fieldsOf(t, DecodePatch(map[string]interface{}{"price": nil}).ValidateUpdate())
	assert.Equal(t, "Price is required", fields["price"])
}

func TestNullOnUpdate(t *testing.T) {
	cur := domain.Plant{Name: "Fern", Price: 120, Categories: []string{"Foliage"}, StockAvailable: true, Description: "keep me"}

	// null text clears the field, null stock flag is ignored
	p := DecodePatch(map[string]interface{}{"description": nil, "stockAvailable": nil})
	require.NoError(t, p.ValidateUpdate())
	p.Apply(&cur)
	assert.Equal(t, "", cur.Description)
	assert.True(t, cur.StockAvailable)

	// null on a required field fails like an empty value
	fields := fieldsOf(t, DecodePatch(map[string]interface{}{
		"name":       nil,
		"price":      nil,
		"categories": nil,
	}).ValidateUpdate())
	assert.Equal(t, map[string]string{
		"name":       "Plant name is required",
		"price":      "Price is required",
		"categories": "At least one category is required",
	}, fields)
}

func TestNewPlantDefaults(t *testing.T) {
	p := DecodePatch(map[string]interface{}{
		"name":       "  Aloe Vera ",
		"price":      199,
		"categories": []interface{}{"Indoor", " Succulent", "Indoor"},
		"_id":        "ignored",
	})
	require.NoError(t, p.ValidateCreate())
	got := p.NewPlant()

	want := domain.Plant{
		Name:              "Aloe Vera",
		Price:             199,
		Categories:        []string{"Indoor", "Succulent"},
		StockAvailable:    true,
		ImageURL:          domain.DefaultImageURL,
		CareLevel:         domain.CareEasy,
		LightRequirement:  domain.LightMedium,
		WateringFrequency: domain.WaterWeekly,
		Height:            domain.DefaultHeight,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewPlant mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyLeavesOtherFields(t *testing.T) {
	cur := domain.Plant{
		Name:           "Fern",
		Price:          120,
		Categories:     []string{"Foliage"},
		StockAvailable: true,
		Description:    "green",
	}
	DecodePatch(map[string]interface{}{"stockAvailable": "false", "price": 99.5}).Apply(&cur)
	assert.Equal(t, "Fern", cur.Name)
	assert.Equal(t, 99.5, cur.Price)
	assert.False(t, cur.StockAvailable)
	assert.Equal(t, "green", cur.Description)
	assert.Equal(t, []string{"Foliage"}, cur.Categories)
}

func TestNormalize(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := Normalize(domain.Plant{
		Name:      "Legacy",
		CreatedAt: created,
		UpdatedAt: created.Add(-time.Hour),
	})
	assert.Equal(t, []string{}, got.Categories)
	assert.Equal(t, domain.DefaultImageURL, got.ImageURL)
	assert.Equal(t, domain.DefaultCareLevel, got.CareLevel)
	assert.Equal(t, domain.DefaultLightRequirement, got.LightRequirement)
	assert.Equal(t, domain.DefaultWateringFrequency, got.WateringFrequency)
	assert.Equal(t, domain.DefaultHeight, got.Height)
	assert.True(t, got.UpdatedAt.Equal(created))

	// idempotent
	assert.Equal(t, got, Normalize(got))
}

func TestValidationErrorMessage(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())
	verr.Add("price", "Price cannot be negative")
	verr.Add("price", "ignored")
	verr.Add("name", "Plant name is required")
	assert.Equal(t, "Price cannot be negative; Plant name is required", verr.Error())
}
