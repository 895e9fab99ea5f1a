package cli

import (
	"fmt"

	"github.com/me/lunchwheel/internal/geo"
	"github.com/me/lunchwheel/internal/validate"
	"github.com/me/lunchwheel/pkg/model"
	"github.com/spf13/cobra"
)

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <zip>",
		Short: "Resolve a US ZIP code to coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := geocodeZip(args[0])
			if err != nil {
				return err
			}
			at := geo.FromLatLngShape(result.Geometry.Location)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address:   %s\n", result.FormattedAddress)
			fmt.Fprintf(out, "Location:  %.6f, %.6f\n", at.Lat(), at.Lng())
			fmt.Fprintf(out, "Plus code: %s\n", geo.PlusCode(at))
			return nil
		},
	}
}

// geocodeZip checks the ZIP format locally and returns the first match.
func geocodeZip(zip string) (*model.GeocodeResult, error) {
	if !validate.IsUSZipCode(zip) {
		return nil, fmt.Errorf("%q is not a US ZIP code (12345 or 12345-6789)", zip)
	}
	resp, err := client.Geocode(zip)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("geocode: no location found for %s", zip)
	}
	logger.Debug("geocoded", "zip", zip, "results", len(resp.Results))
	return &resp.Results[0], nil
}
