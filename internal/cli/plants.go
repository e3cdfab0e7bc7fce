package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
)

func addFilterFlags(fs *pflag.FlagSet) {
	fs.StringP("search", "q", "", "case-insensitive text in name or category")
	fs.String("category", domain.AllCategories, "only plants with this category")
	fs.Float64("min-price", 0, "lowest price")
	fs.Float64("max-price", 0, "highest price")
	fs.Bool("available", false, "only plants in stock")
}

func paramsFromFlags(cmd *cobra.Command) query.Params {
	fs := cmd.Flags()
	p := query.DefaultParams()
	p.Search, _ = fs.GetString("search")
	p.Category, _ = fs.GetString("category")
	if fs.Changed("min-price") {
		v, _ := fs.GetFloat64("min-price")
		p.MinPrice = &v
	}
	if fs.Changed("max-price") {
		v, _ := fs.GetFloat64("max-price")
		p.MaxPrice = &v
	}
	p.AvailableOnly, _ = fs.GetBool("available")
	return p
}

func addPlantFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "plant name")
	fs.Float64("price", 0, "price in INR")
	fs.StringSlice("category", nil, "category, repeat or comma separate for several")
	fs.Bool("in-stock", true, "whether the plant can be ordered")
	fs.String("description", "", "free text description")
	fs.String("image", "", "image URL")
	fs.String("care", "", fmt.Sprintf("care level %v", domain.CareLevels))
	fs.String("light", "", fmt.Sprintf("light requirement %v", domain.LightRequirements))
	fs.String("watering", "", fmt.Sprintf("watering frequency %v", domain.WateringFrequencies))
	fs.String("height", "", "height, e.g. Small, Medium or Tall")
}

// patchFromFlags turns the flags the user actually set into a patch, so an
// update leaves every other field alone
func patchFromFlags(cmd *cobra.Command) schema.Patch {
	fs := cmd.Flags()
	var p schema.Patch
	str := func(flag string) *string {
		if !fs.Changed(flag) {
			return nil
		}
		v, _ := fs.GetString(flag)
		return &v
	}
	p.Name = str("name")
	p.Description = str("description")
	p.ImageURL = str("image")
	p.CareLevel = str("care")
	p.LightRequirement = str("light")
	p.WateringFrequency = str("watering")
	p.Height = str("height")
	if fs.Changed("price") {
		v, _ := fs.GetFloat64("price")
		p.Price = &v
	}
	if fs.Changed("category") {
		v, _ := fs.GetStringSlice("category")
		p.Categories = &v
	}
	if fs.Changed("in-stock") {
		v, _ := fs.GetBool("in-stock")
		p.StockAvailable = &v
	}
	return p
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List plants, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plants, err := clientFor(cmd).List(cmd.Context(), paramsFromFlags(cmd))
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), plants)
			}
			renderPlants(cmd.OutOrStdout(), plants)
			return nil
		},
	}
	addFilterFlags(cmd.Flags())
	cmd.Flags().BoolP("json", "j", false, "print JSON instead of a table")
	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := clientFor(cmd).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			renderPlant(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "print JSON")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a plant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := clientFor(cmd).Create(cmd.Context(), patchFromFlags(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Plant created: "+p.ID))
			renderPlant(cmd.OutOrStdout(), p)
			return nil
		},
	}
	addPlantFlags(cmd.Flags())
	return cmd
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a plant; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := patchFromFlags(cmd)
			if patch.Empty() {
				return fmt.Errorf("nothing to update, set at least one field flag")
			}
			p, err := clientFor(cmd).Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Plant updated: "+p.ID))
			renderPlant(cmd.OutOrStdout(), p)
			return nil
		},
	}
	addPlantFlags(cmd.Flags())
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove plants",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFor(cmd)
			for _, id := range args {
				if err := c.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Plant deleted: "+id))
			}
			return nil
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := clientFor(cmd).Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Price statistics for the matching plants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := clientFor(cmd).Stats(cmd.Context(), paramsFromFlags(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, labelStyle.Render("Plants")+fmt.Sprint(st.Count))
			fmt.Fprintln(w, labelStyle.Render("In stock")+fmt.Sprint(st.InStock))
			if st.Count == 0 {
				return nil
			}
			fmt.Fprintln(w, labelStyle.Render("Cheapest")+formatPrice(st.MinPrice))
			fmt.Fprintln(w, labelStyle.Render("Most expensive")+formatPrice(st.MaxPrice))
			fmt.Fprintln(w, labelStyle.Render("Mean")+formatPrice(st.MeanPrice))
			fmt.Fprintln(w, labelStyle.Render("Median")+formatPrice(st.MedianPrice))
			return nil
		},
	}
	addFilterFlags(cmd.Flags())
	return cmd
}
