package improvement

import (
	"fmt"
	"slices"
	"strings"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// Grid holds the per-field domains of the search space
type Grid struct {
	CFDeviationTypes  []models.DeviationType
	CFDeviationLimits []float64
	EFDeviationTypes  []models.DeviationType
	EFDeviationLimits []float64
	MinResampleLimits []models.ResampleLimit
	MaxResampleLimits []models.ResampleLimit
}

// Preset names accepted by GridPreset
const (
	PresetDefault  = "default"
	PresetExtended = "extended"
)

// DefaultGrid is the grid the optimisation service searches unless configured otherwise
func DefaultGrid() Grid {
	return Grid{
		CFDeviationTypes:  []models.DeviationType{models.DeviationAbsolute, models.DeviationPercentage},
		CFDeviationLimits: []float64{2, 5},
		EFDeviationTypes:  []models.DeviationType{models.DeviationPercentage},
		EFDeviationLimits: []float64{2},
		MinResampleLimits: []models.ResampleLimit{{0, 0, 0}, {0, 1, 0}},
		MaxResampleLimits: []models.ResampleLimit{{0, 0, 0}},
	}
}

// ExtendedGrid covers both deviation types, limits 0..10 and eight resample
// intervals for each bound.
func ExtendedGrid() Grid {
	limits := make([]float64, 0, 11)
	for i := 0; i <= 10; i++ {
		limits = append(limits, float64(i))
	}
	resample := []models.ResampleLimit{
		{0, 0, 0}, {0, 0, 5}, {0, 0, 10}, {0, 0, 30},
		{0, 0, 60}, {0, 1, 0}, {0, 2, 30}, {0, 5, 0},
	}
	both := []models.DeviationType{models.DeviationAbsolute, models.DeviationPercentage}
	return Grid{
		CFDeviationTypes:  slices.Clone(both),
		CFDeviationLimits: slices.Clone(limits),
		EFDeviationTypes:  slices.Clone(both),
		EFDeviationLimits: slices.Clone(limits),
		MinResampleLimits: slices.Clone(resample),
		MaxResampleLimits: slices.Clone(resample),
	}
}

// GridPreset returns a named grid
func GridPreset(name string) (Grid, error) {
	switch strings.ToLower(name) {
	case "", PresetDefault:
		return DefaultGrid(), nil
	case PresetExtended:
		return ExtendedGrid(), nil
	default:
		return Grid{}, fmt.Errorf("unknown grid preset %q", name)
	}
}

// Override replaces every domain that is non-empty in o
func (g Grid) Override(o Grid) Grid {
	out := g.clone()
	if len(o.CFDeviationTypes) > 0 {
		out.CFDeviationTypes = slices.Clone(o.CFDeviationTypes)
	}
	if len(o.CFDeviationLimits) > 0 {
		out.CFDeviationLimits = slices.Clone(o.CFDeviationLimits)
	}
	if len(o.EFDeviationTypes) > 0 {
		out.EFDeviationTypes = slices.Clone(o.EFDeviationTypes)
	}
	if len(o.EFDeviationLimits) > 0 {
		out.EFDeviationLimits = slices.Clone(o.EFDeviationLimits)
	}
	if len(o.MinResampleLimits) > 0 {
		out.MinResampleLimits = slices.Clone(o.MinResampleLimits)
	}
	if len(o.MaxResampleLimits) > 0 {
		out.MaxResampleLimits = slices.Clone(o.MaxResampleLimits)
	}
	return out
}

func (g Grid) clone() Grid {
	return Grid{
		CFDeviationTypes:  slices.Clone(g.CFDeviationTypes),
		CFDeviationLimits: slices.Clone(g.CFDeviationLimits),
		EFDeviationTypes:  slices.Clone(g.EFDeviationTypes),
		EFDeviationLimits: slices.Clone(g.EFDeviationLimits),
		MinResampleLimits: slices.Clone(g.MinResampleLimits),
		MaxResampleLimits: slices.Clone(g.MaxResampleLimits),
	}
}

// Validate checks that every domain is non-empty and holds valid values
func (g Grid) Validate() error {
	domains := []struct {
		name string
		size int
	}{
		{"cf_deviation_type", len(g.CFDeviationTypes)},
		{"cf_deviation_limit", len(g.CFDeviationLimits)},
		{"ef_deviation_type", len(g.EFDeviationTypes)},
		{"ef_deviation_limit", len(g.EFDeviationLimits)},
		{"min_resample_limit", len(g.MinResampleLimits)},
		{"max_resample_limit", len(g.MaxResampleLimits)},
	}
	for _, d := range domains {
		if d.size == 0 {
			return fmt.Errorf("domain %s is empty", d.name)
		}
	}

	for _, dt := range append(slices.Clone(g.CFDeviationTypes), g.EFDeviationTypes...) {
		if !dt.Valid() {
			return fmt.Errorf("unknown deviation type %q", dt)
		}
	}
	for _, v := range append(slices.Clone(g.CFDeviationLimits), g.EFDeviationLimits...) {
		if err := models.ValidateLimit(v); err != nil {
			return fmt.Errorf("deviation limit: %w", err)
		}
	}
	for _, r := range append(slices.Clone(g.MinResampleLimits), g.MaxResampleLimits...) {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("resample limit %v: %w", r, err)
		}
	}
	return nil
}

// ParameterSpace enumerates the Cartesian product of a Grid
type ParameterSpace struct {
	grid            Grid
	excludeInverted bool
}

// NewParameterSpace validates the grid and builds a space over it
func NewParameterSpace(grid Grid) (*ParameterSpace, error) {
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return &ParameterSpace{grid: grid.clone()}, nil
}

// WithExcludeInverted drops candidates whose nonzero minimum resample limit
// exceeds the nonzero maximum.
func (s *ParameterSpace) WithExcludeInverted(exclude bool) *ParameterSpace {
	s.excludeInverted = exclude
	return s
}

// Grid returns a copy of the underlying domains
func (s *ParameterSpace) Grid() Grid {
	return s.grid.clone()
}

// Enumerate returns every candidate. Fields nest in alphabetical order of
// their names: cf deviation limit varies slowest, then cf deviation type,
// ef deviation limit, ef deviation type, max resample limit, and min resample
// limit fastest. The order is stable across calls and feeds the ranking
// tie-break.
func (s *ParameterSpace) Enumerate() []models.ParameterSet {
	g := s.grid
	out := make([]models.ParameterSet, 0, s.product())
	for _, cfLimit := range g.CFDeviationLimits {
		for _, cfType := range g.CFDeviationTypes {
			for _, efLimit := range g.EFDeviationLimits {
				for _, efType := range g.EFDeviationTypes {
					for _, maxR := range g.MaxResampleLimits {
						for _, minR := range g.MinResampleLimits {
							p := models.ParameterSet{
								CFDeviationLimit: cfLimit,
								CFDeviationType:  cfType,
								EFDeviationLimit: efLimit,
								EFDeviationType:  efType,
								MinResampleLimit: minR,
								MaxResampleLimit: maxR,
							}
							if s.excludeInverted && p.ResampleInverted() {
								continue
							}
							out = append(out, p)
						}
					}
				}
			}
		}
	}
	return out
}

// Size returns the number of candidates Enumerate yields
func (s *ParameterSpace) Size() int {
	if !s.excludeInverted {
		return s.product()
	}
	return len(s.Enumerate())
}

func (s *ParameterSpace) product() int {
	g := s.grid
	return len(g.CFDeviationTypes) * len(g.CFDeviationLimits) *
		len(g.EFDeviationTypes) * len(g.EFDeviationLimits) *
		len(g.MinResampleLimits) * len(g.MaxResampleLimits)
}
