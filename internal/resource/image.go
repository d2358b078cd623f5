package resource

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/layout"
	"github.com/vkngwrapper/scenedemo/internal/memory"
)

const (
	TextureFormat = core1_0.FormatR8G8B8A8SRGB
	CubeFaces     = 6
)

// Image is an image with its memory, a view over every layer, and an
// optional sampler. Layout is the layout the image is in once all recorded
// work has executed; it is updated by TransitionImage.
type Image struct {
	Handle  core1_0.Image
	View    core1_0.ImageView
	Sampler core1_0.Sampler
	Format  core1_0.Format
	Width   int
	Height  int
	Layers  int
	Usage   core1_0.ImageUsageFlags
	Layout  core1_0.ImageLayout
	Name    string

	alloc   *memory.Allocation
	manager *Manager
}

// Range covers every layer of the image's first mip level.
func (i *Image) Range() core1_0.ImageSubresourceRange {
	return layout.ColorRange(i.Layers)
}

// Destroy releases the sampler, view, image and memory. Safe to call more
// than once.
func (i *Image) Destroy() {
	driver := i.manager.driver
	if i.Sampler.Initialized() {
		driver.DestroySampler(i.Sampler, nil)
		i.Sampler = core1_0.Sampler{}
	}
	if i.View.Initialized() {
		driver.DestroyImageView(i.View, nil)
		i.View = core1_0.ImageView{}
	}
	if i.Handle.Initialized() {
		driver.DestroyImage(i.Handle, nil)
		i.Handle = core1_0.Image{}
	}
	if i.alloc != nil {
		i.manager.allocator.Free(i.alloc)
		i.alloc = nil
	}
}

type ImageOptions struct {
	Name   string
	Width  int
	Height int
	Format core1_0.Format
	Usage  core1_0.ImageUsageFlags
	// Cube creates a six-layer cube-compatible image with a cube view.
	Cube bool
}

// CreateImage creates a device-local 2D or cube image with a view. The image
// starts in the undefined layout.
func (m *Manager) CreateImage(opts ImageOptions) (*Image, error) {
	layers := 1
	var flags core1_0.ImageCreateFlags
	viewType := core1_0.ImageViewType2D
	if opts.Cube {
		layers = CubeFaces
		flags = core1_0.ImageCreateCubeCompatible
		viewType = core1_0.ImageViewTypeCube
	}

	handle, _, err := m.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		Flags:     flags,
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  opts.Width,
			Height: opts.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   layers,
		Format:        opts.Format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         opts.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, gpuerr.Resource(err, "create image %s", opts.Name)
	}

	image := &Image{
		Handle:  handle,
		Format:  opts.Format,
		Width:   opts.Width,
		Height:  opts.Height,
		Layers:  layers,
		Usage:   opts.Usage,
		Layout:  core1_0.ImageLayoutUndefined,
		Name:    opts.Name,
		manager: m,
	}

	image.alloc, err = m.allocator.BindImage(opts.Name, handle, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		image.Destroy()
		return nil, err
	}

	image.View, _, err = m.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:            handle,
		ViewType:         viewType,
		Format:           opts.Format,
		SubresourceRange: image.Range(),
	})
	if err != nil {
		image.Destroy()
		return nil, gpuerr.Resource(err, "create view for %s", opts.Name)
	}

	m.logger.Debug("image created",
		slog.String("name", opts.Name),
		slog.Int("width", opts.Width),
		slog.Int("height", opts.Height),
		slog.Int("layers", layers))
	return image, nil
}

// TransitionImage records a barrier moving image to newLayout and updates
// its tracked layout.
func (m *Manager) TransitionImage(commandBuffer core1_0.CommandBuffer, image *Image, newLayout core1_0.ImageLayout) error {
	err := layout.Record(m.driver, commandBuffer, image.Handle, image.Layout, newLayout, image.Range())
	if err != nil {
		return errors.Wrapf(err, "transition %s", image.Name)
	}
	image.Layout = newLayout
	return nil
}

// CreateTexture uploads width x height RGBA pixels into a sampled image.
func (m *Manager) CreateTexture(name string, pixels []byte, width, height int) (*Image, error) {
	return m.createSampled(ImageOptions{
		Name:   name,
		Width:  width,
		Height: height,
		Format: TextureFormat,
		Usage:  core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
	}, [][]byte{pixels}, core1_0.SamplerAddressModeRepeat)
}

// CreateCubeTexture uploads six RGBA faces in +X -X +Y -Y +Z -Z order into a
// cube map. Every face must be width x height.
func (m *Manager) CreateCubeTexture(name string, faces [][]byte, width, height int) (*Image, error) {
	if len(faces) != CubeFaces {
		return nil, errors.Mark(errors.Newf("cube texture %s has %d faces", name, len(faces)), gpuerr.ErrResourceCreation)
	}
	return m.createSampled(ImageOptions{
		Name:   name,
		Width:  width,
		Height: height,
		Format: TextureFormat,
		Usage:  core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		Cube:   true,
	}, faces, core1_0.SamplerAddressModeClampToEdge)
}

func (m *Manager) createSampled(opts ImageOptions, layers [][]byte, addressMode core1_0.SamplerAddressMode) (*Image, error) {
	layerSize := opts.Width * opts.Height * 4
	if layerSize <= 0 {
		return nil, errors.Mark(errors.Newf("texture %s is %dx%d", opts.Name, opts.Width, opts.Height), gpuerr.ErrResourceCreation)
	}

	pixels := make([]byte, 0, layerSize*len(layers))
	for i, layer := range layers {
		if len(layer) != layerSize {
			return nil, errors.Mark(errors.Newf("texture %s layer %d has %d bytes, want %d", opts.Name, i, len(layer), layerSize), gpuerr.ErrResourceCreation)
		}
		pixels = append(pixels, layer...)
	}

	staging, err := m.CreateBuffer(opts.Name+" staging", core1_0.BufferUsageTransferSrc, len(pixels), true)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	err = staging.Write(0, pixels)
	if err != nil {
		return nil, err
	}

	image, err := m.CreateImage(opts)
	if err != nil {
		return nil, err
	}

	err = m.OneShot(func(cb core1_0.CommandBuffer) error {
		err := m.TransitionImage(cb, image, core1_0.ImageLayoutTransferDstOptimal)
		if err != nil {
			return err
		}

		err = m.driver.CmdCopyBufferToImage(cb, staging.Handle, image.Handle, core1_0.ImageLayoutTransferDstOptimal,
			core1_0.BufferImageCopy{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     image.Layers,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: opts.Width, Height: opts.Height, Depth: 1},
			},
		)
		if err != nil {
			return err
		}

		return m.TransitionImage(cb, image, core1_0.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		image.Destroy()
		return nil, gpuerr.Resource(err, "upload %s", opts.Name)
	}

	image.Sampler, err = m.createSampler(addressMode)
	if err != nil {
		image.Destroy()
		return nil, gpuerr.Resource(err, "create sampler for %s", opts.Name)
	}
	return image, nil
}

func (m *Manager) createSampler(addressMode core1_0.SamplerAddressMode) (core1_0.Sampler, error) {
	sampler, _, err := m.driver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: addressMode,
		AddressModeV: addressMode,
		AddressModeW: addressMode,

		AnisotropyEnable: m.maxAnisotropy > 0,
		MaxAnisotropy:    m.maxAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     0,
	})
	return sampler, err
}

// ReadImage copies a width x height RGBA image that is in the transfer
// source layout into host memory, blocking until the copy completes.
func (m *Manager) ReadImage(image core1_0.Image, width, height int, current core1_0.ImageLayout) ([]byte, error) {
	if current != core1_0.ImageLayoutTransferSrcOptimal {
		return nil, errors.Wrapf(gpuerr.ErrUnsupportedLayoutTransition, "read back image in layout %s", current)
	}

	size := width * height * 4
	readback, err := m.CreateBuffer("readback", core1_0.BufferUsageTransferDst, size, true)
	if err != nil {
		return nil, err
	}
	defer readback.Destroy()

	err = m.OneShot(func(cb core1_0.CommandBuffer) error {
		return m.driver.CmdCopyImageToBuffer(cb, image, core1_0.ImageLayoutTransferSrcOptimal, readback.Handle,
			core1_0.BufferImageCopy{
				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask: core1_0.ImageAspectColor,
					LayerCount: 1,
				},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		)
	})
	if err != nil {
		return nil, errors.Wrap(err, "read back image")
	}

	out := make([]byte, size)
	copy(out, readback.Bytes())
	return out, nil
}
