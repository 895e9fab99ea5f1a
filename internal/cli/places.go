package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/me/lunchwheel/internal/geo"
	"github.com/me/lunchwheel/internal/validate"
	"github.com/me/lunchwheel/pkg/model"
	"github.com/spf13/cobra"
)

// searchFlags are the search options shared by places and spin.
type searchFlags struct {
	lat    float64
	lng    float64
	radius int
	rankBy string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude of the search origin")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "Longitude of the search origin")
	cmd.Flags().IntVar(&f.radius, "radius", validate.DefaultRadius, "Search radius in meters (500-50000)")
	cmd.Flags().StringVar(&f.rankBy, "rank-by", "", `Set to "distance" to rank by distance instead of radius`)
}

// query validates the flags the same way the server validates parameters.
func (f *searchFlags) query(origin geo.Point) (model.SearchQuery, error) {
	return validate.SearchQuery(
		strconv.FormatFloat(origin.Lat(), 'f', -1, 64),
		strconv.FormatFloat(origin.Lng(), 'f', -1, 64),
		strconv.Itoa(f.radius),
		f.rankBy,
	)
}

func newPlacesCmd() *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "places --lat <lat> --lng <lng>",
		Short: "List restaurants near a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(geo.FromLatLng(flags.lat, flags.lng))
			if err != nil {
				return err
			}
			found, err := client.Places(q)
			if err != nil {
				return fmt.Errorf("search places: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No restaurants found.")
				return nil
			}
			printPlaces(out, geo.FromLatLng(q.Latitude, q.Longitude), found)
			return nil
		},
	}
	flags.register(cmd)
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lng")
	return cmd
}

// printPlaces writes an aligned table. Columns are sized by display width
// so names in wide scripts line up.
func printPlaces(out io.Writer, origin geo.Point, list []model.NormalizedPlace) {
	rows := [][]string{{"NAME", "TYPE", "RATING", "PRICE", "DISTANCE", "ADDRESS"}}
	for _, p := range list {
		rows = append(rows, []string{
			p.DisplayName,
			primaryType(p),
			rating(p),
			price(p),
			fmt.Sprintf("%.2f mi", geo.DistanceMiles(origin, geo.FromLocation(p.Location))),
			p.FormattedAddress,
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]+2))
		}
		fmt.Fprintln(out, b.String())
	}
}

func primaryType(p model.NormalizedPlace) string {
	if p.PrimaryType == nil {
		return "-"
	}
	return *p.PrimaryType
}

func rating(p model.NormalizedPlace) string {
	if p.Rating == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f (%d)", *p.Rating, p.UserRatingCount)
}

func price(p model.NormalizedPlace) string {
	if p.PriceLevel == nil {
		return "-"
	}
	return strings.Repeat("$", *p.PriceLevel)
}
