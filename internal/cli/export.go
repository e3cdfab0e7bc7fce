package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/talkincode/plantcatalog/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w io.Writer, v interface{}) error {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bs))
	return err
}

// ExportRow is one plant in an export file. Categories are joined with "|"
// like the seed catalog.
type ExportRow struct {
	ID                string  `csv:"id"`
	Name              string  `csv:"name"`
	Price             float64 `csv:"price"`
	Categories        string  `csv:"categories"`
	StockAvailable    bool    `csv:"stock_available"`
	Description       string  `csv:"description"`
	ImageURL          string  `csv:"image_url"`
	CareLevel         string  `csv:"care_level"`
	LightRequirement  string  `csv:"light_requirement"`
	WateringFrequency string  `csv:"watering_frequency"`
	Height            string  `csv:"height"`
	CreatedAt         string  `csv:"created_at"`
	UpdatedAt         string  `csv:"updated_at"`
}

var exportHeader = []string{
	"id", "name", "price", "categories", "stock_available", "description", "image_url",
	"care_level", "light_requirement", "watering_frequency", "height", "created_at", "updated_at",
}

func toExportRow(p domain.Plant) ExportRow {
	return ExportRow{
		ID:                p.ID,
		Name:              p.Name,
		Price:             p.Price,
		Categories:        strings.Join(p.Categories, "|"),
		StockAvailable:    p.StockAvailable,
		Description:       p.Description,
		ImageURL:          p.ImageURL,
		CareLevel:         string(p.CareLevel),
		LightRequirement:  string(p.LightRequirement),
		WateringFrequency: string(p.WateringFrequency),
		Height:            p.Height,
		CreatedAt:         p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:         p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r ExportRow) cells() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Price, r.Categories, r.StockAvailable, r.Description, r.ImageURL,
		r.CareLevel, r.LightRequirement, r.WateringFrequency, r.Height, r.CreatedAt, r.UpdatedAt,
	}
}

// WriteCSV writes plants as CSV with a header line
func WriteCSV(w io.Writer, plants []domain.Plant) error {
	rows := make([]ExportRow, len(plants))
	for i, p := range plants {
		rows[i] = toExportRow(p)
	}
	if len(rows) == 0 {
		// gocsv writes nothing for an empty slice
		_, err := fmt.Fprintln(w, strings.Join(exportHeader, ","))
		return err
	}
	bs, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return errors.Wrap(err, "encode csv")
	}
	_, err = w.Write(bs)
	return err
}

const xlsxSheet = "Sheet1"

// columnName maps a zero based index to a spreadsheet column: 0 is A, 26 is AA
func columnName(i int) string {
	name := ""
	for i++; i > 0; i = (i - 1) / 26 {
		name = string(rune('A'+(i-1)%26)) + name
	}
	return name
}

// WriteXLSX writes plants as a single sheet workbook
func WriteXLSX(w io.Writer, plants []domain.Plant) error {
	f := excelize.NewFile()
	for c, h := range exportHeader {
		f.SetCellValue(xlsxSheet, fmt.Sprintf("%s1", columnName(c)), h)
	}
	for r, p := range plants {
		for c, v := range toExportRow(p).cells() {
			f.SetCellValue(xlsxSheet, fmt.Sprintf("%s%d", columnName(c), r+2), v)
		}
	}
	return errors.Wrap(f.Write(w), "encode xlsx")
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the matching plants as csv or xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			var write func(io.Writer, []domain.Plant) error
			switch strings.ToLower(format) {
			case "csv":
				write = WriteCSV
			case "xlsx":
				write = WriteXLSX
			default:
				return fmt.Errorf("unsupported format %q, use csv or xlsx", format)
			}

			plants, err := clientFor(cmd).List(cmd.Context(), paramsFromFlags(cmd))
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return write(cmd.OutOrStdout(), plants)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := write(f, plants); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(fmt.Sprintf("%d plant(s) written to %s", len(plants), output)))
			return nil
		},
	}
	addFilterFlags(cmd.Flags())
	cmd.Flags().StringP("format", "f", "csv", "csv or xlsx")
	cmd.Flags().StringP("output", "o", "", "output file, stdout when empty")
	return cmd
}
