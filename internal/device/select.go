package device

import (
	"fmt"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// Candidate describes one physical device as seen by the selection policy.
type Candidate struct {
	Index      int
	Name       string
	Type       core1_0.PhysicalDeviceType
	Extensions map[string]bool
	// QueueFamily is a family supporting graphics and present, or -1.
	QueueFamily       int
	SamplerAnisotropy bool
	DepthBounds       bool
	SurfaceAdequate   bool

	Device core1_0.PhysicalDevice
}

func (c Candidate) Discrete() bool {
	return c.Type == core1_0.PhysicalDeviceTypeDiscreteGPU
}

// Chooser picks one of several qualifying candidates.
type Chooser func(candidates []Candidate) (Candidate, error)

// Policy decides which physical device the renderer runs on.
type Policy struct {
	// Required lists device extensions a candidate must expose.
	Required []string
	// Filter rejects candidates beyond the required extensions. May be nil.
	Filter func(Candidate) bool
	// Choose breaks ties when more than one candidate qualifies.
	Choose Chooser
	// Pinned runs Choose even when a single candidate qualifies, for
	// choosers that can reject it.
	Pinned bool
}

// Suitable reports whether c meets the hard requirements of the policy.
func (p Policy) Suitable(c Candidate) bool {
	if c.QueueFamily < 0 || !c.SurfaceAdequate {
		return false
	}
	for _, ext := range p.Required {
		if !c.Extensions[ext] {
			return false
		}
	}
	if p.Filter != nil && !p.Filter(c) {
		return false
	}
	return true
}

// Select filters candidates through the policy and returns the chosen one.
func Select(candidates []Candidate, policy Policy) (Candidate, error) {
	var suitable []Candidate
	for _, c := range candidates {
		if policy.Suitable(c) {
			suitable = append(suitable, c)
		}
	}

	if len(suitable) == 0 {
		return Candidate{}, errors.Wrapf(gpuerr.ErrNoSuitableDevice, "%d devices examined", len(candidates))
	}
	if policy.Choose == nil || (len(suitable) == 1 && !policy.Pinned) {
		return suitable[0], nil
	}
	return policy.Choose(suitable)
}

// PreferDiscrete picks the first discrete GPU, else the first candidate.
func PreferDiscrete(candidates []Candidate) (Candidate, error) {
	ordered := append([]Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Discrete() && !ordered[j].Discrete()
	})
	return ordered[0], nil
}

// Fixed picks the candidate with the given enumeration index.
func Fixed(index int) Chooser {
	return func(candidates []Candidate) (Candidate, error) {
		for _, c := range candidates {
			if c.Index == index {
				return c, nil
			}
		}
		return Candidate{}, errors.Wrapf(gpuerr.ErrNoSuitableDevice, "device %d is not a suitable candidate", index)
	}
}

// Interactive lists the candidates on out and reads a choice from in. An
// unreadable answer falls back to fallback.
func Interactive(in io.Reader, out io.Writer, fallback Chooser) Chooser {
	return func(candidates []Candidate) (Candidate, error) {
		fmt.Fprintln(out, "Multiple suitable GPUs found:")
		for i, c := range candidates {
			fmt.Fprintf(out, "  [%d] %s (%v)\n", i, c.Name, c.Type)
		}
		fmt.Fprint(out, "Select GPU: ")

		var choice int
		_, err := fmt.Fscan(in, &choice)
		if err != nil || choice < 0 || choice >= len(candidates) {
			fmt.Fprintln(out, "invalid selection, using default")
			return fallback(candidates)
		}
		return candidates[choice], nil
	}
}

// FindQueueFamily returns the first family with graphics support that can
// also present to the surface.
func FindQueueFamily(families []core1_0.QueueFlags, presentSupport func(family int) (bool, error)) (int, error) {
	for i, flags := range families {
		if flags&core1_0.QueueGraphics == 0 {
			continue
		}

		supported, err := presentSupport(i)
		if err != nil {
			return -1, gpuerr.Initialization(err, "query present support for family %d", i)
		}
		if supported {
			return i, nil
		}
	}
	return -1, gpuerr.ErrNoSuitableQueueFamily
}
