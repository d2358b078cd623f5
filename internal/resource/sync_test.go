package resource

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"go.uber.org/mock/gomock"
)

func newMockManager(t *testing.T) (*Manager, *mocks1_0.MockDeviceDriver, core1_0.Device) {
	ctrl := gomock.NewController(t)
	driver := mocks1_0.NewMockDeviceDriver(ctrl)
	device := mocks.NewDummyDevice(common.Vulkan1_0, nil)

	driver.EXPECT().CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: 2,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	}).Return(mocks.NewDummyCommandPool(device), core1_0.VKSuccess, nil)

	m, err := NewManager(driver, mocks.NewDummyQueue(device), nil, Options{QueueFamily: 2}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return m, driver, device
}

func TestFrameSyncRenewDestroysBeforeCreating(t *testing.T) {
	m, driver, device := newMockManager(t)

	fence := mocks.NewDummyFence(device)
	first := []core1_0.Semaphore{mocks.NewDummySemaphore(device), mocks.NewDummySemaphore(device)}
	second := []core1_0.Semaphore{mocks.NewDummySemaphore(device), mocks.NewDummySemaphore(device)}

	gomock.InOrder(
		driver.EXPECT().CreateFence(nil, core1_0.FenceCreateInfo{Flags: core1_0.FenceCreateSignaled}).
			Return(fence, core1_0.VKSuccess, nil),
		driver.EXPECT().CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{}).Return(first[0], core1_0.VKSuccess, nil),
		driver.EXPECT().CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{}).Return(first[1], core1_0.VKSuccess, nil),

		driver.EXPECT().DestroySemaphore(first[0], nil),
		driver.EXPECT().DestroySemaphore(first[1], nil),
		driver.EXPECT().CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{}).Return(second[0], core1_0.VKSuccess, nil),
		driver.EXPECT().CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{}).Return(second[1], core1_0.VKSuccess, nil),

		driver.EXPECT().DestroySemaphore(second[0], nil),
		driver.EXPECT().DestroySemaphore(second[1], nil),
		driver.EXPECT().DestroyFence(fence, nil),
	)

	sync, err := m.NewFrameSync()
	require.NoError(t, err)
	assert.Equal(t, first[0], sync.ImageAvailable())
	assert.Equal(t, first[1], sync.RenderFinished())

	require.NoError(t, sync.Renew())
	assert.Equal(t, second[0], sync.ImageAvailable())
	assert.Equal(t, second[1], sync.RenderFinished())
	assert.Equal(t, fence, sync.Fence(), "the fence survives a renew")

	sync.Destroy()
	sync.Destroy()
}
