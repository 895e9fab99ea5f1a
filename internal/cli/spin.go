package cli

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/me/lunchwheel/internal/geo"
	"github.com/me/lunchwheel/internal/wheel"
	"github.com/me/lunchwheel/pkg/model"
	"github.com/spf13/cobra"
)

const (
	tickInterval = 80 * time.Millisecond
	tickWidth    = 40
)

func newSpinCmd() *cobra.Command {
	var (
		flags    searchFlags
		zip      string
		duration time.Duration
		seed     uint64
	)
	cmd := &cobra.Command{
		Use:   "spin (--zip <zip> | --lat <lat> --lng <lng>)",
		Short: "Pick a random nearby restaurant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			origin := geo.FromLatLng(flags.lat, flags.lng)
			switch {
			case zip != "":
				result, err := geocodeZip(zip)
				if err != nil {
					return err
				}
				origin = geo.FromLatLngShape(result.Geometry.Location)
				fmt.Fprintf(out, "Searching near %s\n", result.FormattedAddress)
			case !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng"):
				return errors.New("either --zip or both --lat and --lng are required")
			}

			q, err := flags.query(origin)
			if err != nil {
				return err
			}
			found, err := client.Places(q)
			if err != nil {
				return fmt.Errorf("search places: %w", err)
			}
			if len(found) == 0 {
				return errors.New("no restaurants found nearby; try a larger --radius")
			}

			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewPCG(seed, seed))
			}
			w := wheel.New(wheel.NewSelector(rng), found)

			if _, err := w.Spin(); err != nil {
				return err
			}
			animate(out, w.Candidates(), duration)
			idx, err := w.Finish()
			if err != nil {
				return err
			}
			logger.Debug("wheel stopped", "index", idx, "candidates", len(found))

			p, _, _ := w.Selected()
			at := geo.FromLocation(p.Location)
			miles := geo.DistanceMiles(origin, at)
			winner := lipgloss.NewRenderer(out).NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8C00"))
			fmt.Fprintf(out, "Lunch is at: %s\n", winner.Render(p.DisplayName))
			fmt.Fprintf(out, "  Type:      %s\n", primaryType(p))
			fmt.Fprintf(out, "  Rating:    %s\n", rating(p))
			fmt.Fprintf(out, "  Price:     %s\n", price(p))
			fmt.Fprintf(out, "  Address:   %s\n", p.FormattedAddress)
			fmt.Fprintf(out, "  Distance:  %.2f mi\n", miles)
			fmt.Fprintf(out, "  Plus code: %s\n", geo.PlusCode(at))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&zip, "zip", "", "US ZIP code to search around")
	cmd.Flags().DurationVar(&duration, "spin-duration", 2*time.Second, "Length of the spin animation (0 to skip)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the wheel (0 picks a random seed)")
	cmd.MarkFlagsMutuallyExclusive("zip", "lat")
	cmd.MarkFlagsMutuallyExclusive("zip", "lng")
	return cmd
}

// animate cycles through the candidate names until d has elapsed. It only
// decides how long the reveal takes; the winner was drawn before it started.
// Nothing is drawn unless out is a terminal.
func animate(out io.Writer, candidates []model.NormalizedPlace, d time.Duration) {
	if d <= 0 || len(candidates) == 0 || !isTerminal(out) {
		return
	}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	deadline := time.After(d)
	for i := 0; ; i++ {
		name := runewidth.Truncate(candidates[i%len(candidates)].DisplayName, tickWidth, "…")
		fmt.Fprintf(out, "\r  %s", runewidth.FillRight(name, tickWidth))
		select {
		case <-deadline:
			fmt.Fprint(out, "\r\n")
			return
		case <-ticker.C:
		}
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
