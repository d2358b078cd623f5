package device

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

const swapchainExt = "VK_KHR_swapchain"

func candidate(index int, name string, typ core1_0.PhysicalDeviceType) Candidate {
	return Candidate{
		Index:           index,
		Name:            name,
		Type:            typ,
		Extensions:      map[string]bool{swapchainExt: true},
		QueueFamily:     0,
		SurfaceAdequate: true,
	}
}

func TestSelectNoCandidates(t *testing.T) {
	_, err := Select(nil, Policy{Required: []string{swapchainExt}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableDevice))
	assert.True(t, errors.Is(err, gpuerr.ErrInitialization))
}

func TestSelectMissingExtension(t *testing.T) {
	c := candidate(0, "integrated", core1_0.PhysicalDeviceTypeIntegratedGPU)
	c.Extensions = map[string]bool{}

	_, err := Select([]Candidate{c}, Policy{Required: []string{swapchainExt}})
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableDevice))
}

func TestSelectRejectsNoQueueFamily(t *testing.T) {
	c := candidate(0, "headless", core1_0.PhysicalDeviceTypeDiscreteGPU)
	c.QueueFamily = -1

	_, err := Select([]Candidate{c}, Policy{})
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableDevice))
}

func TestSelectPrefersDiscrete(t *testing.T) {
	candidates := []Candidate{
		candidate(0, "integrated", core1_0.PhysicalDeviceTypeIntegratedGPU),
		candidate(1, "discrete", core1_0.PhysicalDeviceTypeDiscreteGPU),
	}

	chosen, err := Select(candidates, Policy{Required: []string{swapchainExt}, Choose: PreferDiscrete})
	require.NoError(t, err)
	assert.Equal(t, "discrete", chosen.Name)
}

func TestSelectFilter(t *testing.T) {
	candidates := []Candidate{
		candidate(0, "integrated", core1_0.PhysicalDeviceTypeIntegratedGPU),
		candidate(1, "discrete", core1_0.PhysicalDeviceTypeDiscreteGPU),
	}
	candidates[1].SamplerAnisotropy = false
	candidates[0].SamplerAnisotropy = true

	chosen, err := Select(candidates, Policy{
		Filter: func(c Candidate) bool { return c.SamplerAnisotropy },
		Choose: PreferDiscrete,
	})
	require.NoError(t, err)
	assert.Equal(t, "integrated", chosen.Name)
}

func TestFixed(t *testing.T) {
	candidates := []Candidate{
		candidate(0, "a", core1_0.PhysicalDeviceTypeDiscreteGPU),
		candidate(3, "b", core1_0.PhysicalDeviceTypeDiscreteGPU),
	}

	chosen, err := Select(candidates, Policy{Choose: Fixed(3)})
	require.NoError(t, err)
	assert.Equal(t, "b", chosen.Name)

	_, err = Select(candidates, Policy{Choose: Fixed(7)})
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableDevice))
}

func TestFixedSingleCandidate(t *testing.T) {
	only := []Candidate{candidate(0, "only", core1_0.PhysicalDeviceTypeIntegratedGPU)}

	_, err := Select(only, Policy{Choose: Fixed(2), Pinned: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableDevice))

	chosen, err := Select(only, Policy{Choose: Fixed(0), Pinned: true})
	require.NoError(t, err)
	assert.Equal(t, "only", chosen.Name)
}

func TestSingleCandidateSkipsUnpinnedChooser(t *testing.T) {
	only := []Candidate{candidate(0, "only", core1_0.PhysicalDeviceTypeIntegratedGPU)}
	called := false

	chosen, err := Select(only, Policy{Choose: func(c []Candidate) (Candidate, error) {
		called = true
		return c[0], nil
	}})
	require.NoError(t, err)
	assert.Equal(t, "only", chosen.Name)
	assert.False(t, called)
}

func TestInteractive(t *testing.T) {
	candidates := []Candidate{
		candidate(0, "first", core1_0.PhysicalDeviceTypeDiscreteGPU),
		candidate(1, "second", core1_0.PhysicalDeviceTypeIntegratedGPU),
	}

	var out bytes.Buffer
	chosen, err := Select(candidates, Policy{Choose: Interactive(strings.NewReader("1\n"), &out, PreferDiscrete)})
	require.NoError(t, err)
	assert.Equal(t, "second", chosen.Name)
	assert.Contains(t, out.String(), "[1] second")

	out.Reset()
	chosen, err = Select(candidates, Policy{Choose: Interactive(strings.NewReader("nonsense"), &out, PreferDiscrete)})
	require.NoError(t, err)
	assert.Equal(t, "first", chosen.Name)
	assert.Contains(t, out.String(), "invalid selection")
}

func TestFindQueueFamily(t *testing.T) {
	families := []core1_0.QueueFlags{
		core1_0.QueueTransfer,
		core1_0.QueueGraphics | core1_0.QueueCompute,
		core1_0.QueueGraphics,
	}

	family, err := FindQueueFamily(families, func(i int) (bool, error) { return i == 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, family)

	family, err = FindQueueFamily(families, func(i int) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, family, "transfer-only family is skipped even if it can present")

	_, err = FindQueueFamily(families, func(i int) (bool, error) { return i == 0, nil })
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableQueueFamily))

	_, err = FindQueueFamily(families, func(i int) (bool, error) { return false, errors.New("lost surface") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpuerr.ErrInitialization))
}
