package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

// FindMemoryType returns the first memory type index that is allowed by
// typeFilter and carries every flag in properties.
func FindMemoryType(types []core1_0.MemoryType, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range types {
		if i >= 32 {
			break
		}
		typeBit := uint32(1) << uint(i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Wrapf(gpuerr.ErrNoSuitableMemoryType, "filter %#b, properties %s", typeFilter, properties)
}
