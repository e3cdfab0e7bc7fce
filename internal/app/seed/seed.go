// Package seed carries the starter catalog shipped with the binaries
package seed

import (
	_ "embed"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/talkincode/plantcatalog/internal/schema"
)

//go:embed plants.csv
var plantsCSV []byte

// Row is one line of plants.csv; categories are separated by "|"
type Row struct {
	Name              string  `csv:"name"`
	Price             float64 `csv:"price"`
	Categories        string  `csv:"categories"`
	StockAvailable    bool    `csv:"stock_available"`
	Description       string  `csv:"description"`
	CareLevel         string  `csv:"care_level"`
	LightRequirement  string  `csv:"light_requirement"`
	WateringFrequency string  `csv:"watering_frequency"`
	Height            string  `csv:"height"`
}

// Patch converts the row into a create request
func (r Row) Patch() schema.Patch {
	tags := strings.Split(r.Categories, "|")
	return schema.Patch{
		Name:              &r.Name,
		Price:             &r.Price,
		Categories:        &tags,
		StockAvailable:    &r.StockAvailable,
		Description:       &r.Description,
		CareLevel:         &r.CareLevel,
		LightRequirement:  &r.LightRequirement,
		WateringFrequency: &r.WateringFrequency,
		Height:            &r.Height,
	}
}

// Rows parses the embedded catalog
func Rows() ([]Row, error) {
	var rows []Row
	if err := gocsv.UnmarshalBytes(plantsCSV, &rows); err != nil {
		return nil, errors.Wrap(err, "parse seed catalog")
	}
	return rows, nil
}

// Patches returns the embedded catalog as create requests, in file order
func Patches() ([]schema.Patch, error) {
	rows, err := Rows()
	if err != nil {
		return nil, err
	}
	out := make([]schema.Patch, len(rows))
	for i, r := range rows {
		out[i] = r.Patch()
	}
	return out, nil
}
