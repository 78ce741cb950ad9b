package metricspec

import (
	"fmt"
	"sort"
)

// Category identifies where a metric value comes from.
type Category string

const (
	CategoryStatistical  Category = "statistical"
	CategoryModel        Category = "model"
	CategoryLLMEstimated Category = "llm-estimated"
	CategoryPremium      Category = "premium"
)

// Direction describes how a raw value relates to AI likelihood.
type Direction string

const (
	// DirectionDirect: higher raw value means more AI-like.
	DirectionDirect Direction = "direct"
	// DirectionInverted: lower raw value means more AI-like.
	DirectionInverted Direction = "inverted"
)

// Band is an inclusive raw-value range.
type Band struct {
	Lo float64
	Hi float64
}

// Spec describes one registered metric: either a calibration band pair
// (HumanRange/AIRange) or Passthrough for values already on the 0-100 scale.
// Exactly one of the two applies.
type Spec struct {
	Name        string
	Category    Category
	Passthrough bool
	HumanRange  Band
	AIRange     Band
	// Weight is the metric's reliability weight in the ensemble.
	Weight float64
}

// Direction derives the calibration direction from band ordering.
func (s Spec) Direction() Direction {
	if s.AIRange.Lo < s.HumanRange.Lo {
		return DirectionInverted
	}
	return DirectionDirect
}

// Registry is the static catalogue of known metrics.
type Registry struct {
	specs map[string]Spec
}

// New builds a registry from the given specs. It panics on a spec that is
// neither passthrough nor carries usable bands, since the catalogue is
// assembled at process start from static data.
func New(specs ...Spec) *Registry {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		if !s.Passthrough {
			if s.AIRange.Hi <= s.AIRange.Lo || s.HumanRange.Hi <= s.HumanRange.Lo {
				panic(fmt.Sprintf("metricspec: invalid bands for %q", s.Name))
			}
		}
		if s.Weight <= 0 {
			s.Weight = 1
		}
		m[s.Name] = s
	}
	return &Registry{specs: m}
}

// Lookup returns the spec for a metric name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns all registered metric names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	return out
}

// NamesByCategory returns registered metric names in the given category,
// sorted for stable prompt and log output.
func (r *Registry) NamesByCategory(cat Category) []string {
	var out []string
	for name, s := range r.specs {
		if s.Category == cat {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// MissingFrom reports which of the given names have no registry entry.
// Callers surface these as configuration-time warnings rather than
// relying on runtime scale guessing.
func (r *Registry) MissingFrom(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := r.specs[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
