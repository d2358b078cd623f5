package asset

import (
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/scenedemo/internal/geom"
)

// Model is indexed triangle geometry.
type Model struct {
	Name     string
	Vertices []geom.Vertex
	Indices  []uint32
}

type vertexKey struct {
	position int
	uv       int
}

// DecodeOBJ triangulates every face of an OBJ file. Vertices sharing a
// position and texture coordinate are merged. mtl may be nil.
func DecodeOBJ(name string, objFile, mtl io.Reader) (Model, error) {
	if mtl == nil {
		mtl = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(objFile, mtl)
	if err != nil {
		return Model{}, errors.Wrapf(err, "decode model %s", name)
	}

	model := Model{Name: name}
	unique := make(map[vertexKey]uint32)

	addVertex := func(face obj.Face, corner int) {
		key := vertexKey{position: face.Vertices[corner], uv: -1}
		if corner < len(face.Uvs) {
			key.uv = face.Uvs[corner]
		}

		index, ok := unique[key]
		if !ok {
			v := geom.Vertex{
				Position: mgl32.Vec3{
					decoder.Vertices[key.position*3],
					decoder.Vertices[key.position*3+1],
					decoder.Vertices[key.position*3+2],
				},
				Color: mgl32.Vec3{1, 1, 1},
			}
			if key.uv >= 0 && key.uv*2+1 < len(decoder.Uvs) {
				v.TexCoord = mgl32.Vec2{
					decoder.Uvs[key.uv*2],
					1.0 - decoder.Uvs[key.uv*2+1],
				}
			}

			index = uint32(len(model.Vertices))
			model.Vertices = append(model.Vertices, v)
			unique[key] = index
		}

		model.Indices = append(model.Indices, index)
	}

	for _, object := range decoder.Objects {
		for _, face := range object.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				addVertex(face, 0)
				addVertex(face, i-1)
				addVertex(face, i)
			}
		}
	}

	if len(model.Indices) == 0 {
		return Model{}, errors.Newf("model %s has no faces", name)
	}
	return model, nil
}

// LoadOBJ reads an OBJ file and the .mtl next to it, if present.
func LoadOBJ(fsys fs.FS, name string) (Model, error) {
	objFile, err := fsys.Open(name)
	if err != nil {
		return Model{}, errors.Wrapf(err, "open model %s", name)
	}
	defer objFile.Close()

	var mtl io.Reader
	mtlName := strings.TrimSuffix(name, path.Ext(name)) + ".mtl"
	if mtlFile, err := fsys.Open(mtlName); err == nil {
		defer mtlFile.Close()
		mtl = mtlFile
	}

	return DecodeOBJ(name, objFile, mtl)
}

// BuiltinCube is the fallback model when none is configured.
func BuiltinCube() Model {
	vertices, indices := geom.Cube(0.5)
	return Model{Name: "cube", Vertices: vertices, Indices: indices}
}
