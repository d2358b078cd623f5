// Package asset turns model and image files into the vertex, index and RGBA
// pixel arrays the resource manager uploads.
package asset

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Pixels is a tightly packed RGBA8 image.
type Pixels struct {
	Data   []byte
	Width  int
	Height int
}

// DecodeImage decodes any registered image format into RGBA. Images larger
// than maxSize on either side are scaled down to fit; zero disables scaling.
func DecodeImage(r io.Reader, maxSize int) (Pixels, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return Pixels{}, errors.Wrap(err, "decode image")
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return Pixels{}, errors.Newf("%s image is empty", format)
	}

	width, height := fit(bounds.Dx(), bounds.Dy(), maxSize)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}
	return Pixels{Data: dst.Pix, Width: width, Height: height}, nil
}

func fit(width, height, maxSize int) (int, int) {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return width, height
	}
	if width >= height {
		return maxSize, max(1, height*maxSize/width)
	}
	return max(1, width*maxSize/height), maxSize
}

func LoadImage(fsys fs.FS, path string, maxSize int) (Pixels, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return Pixels{}, errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	pixels, err := DecodeImage(f, maxSize)
	return pixels, errors.Wrapf(err, "image %s", path)
}

// LoadCube decodes the six faces of a cube map in parallel. Every face must
// have the dimensions of the first.
func LoadCube(ctx context.Context, fsys fs.FS, paths []string) ([]Pixels, error) {
	if len(paths) != 6 {
		return nil, errors.Newf("cube map needs 6 faces, got %d", len(paths))
	}

	faces := make([]Pixels, len(paths))
	group, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			face, err := LoadImage(fsys, path, 0)
			if err != nil {
				return err
			}
			faces[i] = face
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	for i, face := range faces[1:] {
		if face.Width != faces[0].Width || face.Height != faces[0].Height {
			return nil, errors.Newf("cube face %s is %dx%d, want %dx%d",
				paths[i+1], face.Width, face.Height, faces[0].Width, faces[0].Height)
		}
	}
	return faces, nil
}

// Layers returns the face data in order.
func Layers(faces []Pixels) [][]byte {
	layers := make([][]byte, len(faces))
	for i, face := range faces {
		layers[i] = face.Data
	}
	return layers
}
