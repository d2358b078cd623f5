package memory

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

func syntheticTypes() []core1_0.MemoryType {
	return []core1_0.MemoryType{
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible},
	}
}

func TestFindMemoryTypeSkipsFilteredCandidates(t *testing.T) {
	// Index 0 is device local but excluded by the filter; index 1 is allowed but
	// not device local.
	index, err := FindMemoryType(syntheticTypes(), 0b0110, core1_0.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	assert.Equal(t, 2, index)
}

func TestFindMemoryTypeHostVisible(t *testing.T) {
	index, err := FindMemoryType(syntheticTypes(), 0b1111, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	index, err = FindMemoryType(syntheticTypes(), 0b1000, core1_0.MemoryPropertyHostVisible)
	require.NoError(t, err)
	assert.Equal(t, 3, index)
}

func TestFindMemoryTypeNoMatch(t *testing.T) {
	_, err := FindMemoryType(syntheticTypes(), 0b0010, core1_0.MemoryPropertyDeviceLocal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpuerr.ErrNoSuitableMemoryType))
	assert.True(t, errors.Is(err, gpuerr.ErrUnsupportedMemoryType))

	_, err = FindMemoryType(nil, 0xffffffff, 0)
	assert.Error(t, err)
}
