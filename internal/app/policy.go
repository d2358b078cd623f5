package app

import (
	"io"

	"github.com/vkngwrapper/scenedemo/internal/config"
	"github.com/vkngwrapper/scenedemo/internal/device"
)

// Policy turns the GPU configuration into a selection policy. A fixed device
// index wins over everything; otherwise the interactive prompt, when enabled,
// falls back to the non-interactive choice on bad input.
func Policy(cfg config.GPU, in io.Reader, out io.Writer) device.Policy {
	var choose device.Chooser = firstCandidate
	if cfg.PreferDiscrete {
		choose = device.PreferDiscrete
	}

	pinned := cfg.DeviceIndex >= 0
	switch {
	case pinned:
		choose = device.Fixed(cfg.DeviceIndex)
	case cfg.Interactive && in != nil:
		choose = device.Interactive(in, out, choose)
	}

	return device.Policy{
		Required: device.RequiredExtensions,
		Choose:   choose,
		Pinned:   pinned,
	}
}

func firstCandidate(candidates []device.Candidate) (device.Candidate, error) {
	return candidates[0], nil
}
