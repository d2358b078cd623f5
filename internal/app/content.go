package app

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/vkngwrapper/scenedemo/internal/asset"
	"github.com/vkngwrapper/scenedemo/internal/config"
	"github.com/vkngwrapper/scenedemo/internal/geom"
)

const maxTextureSize = 2048

// Content is what the scene is built from. Anything left empty falls back to
// a built-in asset.
type Content struct {
	Model   asset.Model
	Texture asset.Pixels
	Skybox  []asset.Pixels
	// NoSkybox skips the skybox draw entirely.
	NoSkybox bool
	// Static draws with identity transforms, or with Transform when set.
	Static    bool
	Transform *geom.UniformBufferObject
}

// LoadContent reads the configured assets from fsys.
func LoadContent(ctx context.Context, fsys fs.FS, cfg config.Assets, logger *slog.Logger) (Content, error) {
	var content Content
	var err error

	if len(cfg.Models) > 0 {
		if len(cfg.Models) > 1 {
			logger.Warn("only the first model is drawn", slog.Any("models", cfg.Models))
		}
		content.Model, err = asset.LoadOBJ(fsys, cfg.Models[0])
		if err != nil {
			return content, err
		}
	}

	if cfg.Texture != "" {
		content.Texture, err = asset.LoadImage(fsys, cfg.Texture, maxTextureSize)
		if err != nil {
			return content, err
		}
	}

	if len(cfg.Skybox) > 0 {
		content.Skybox, err = asset.LoadCube(ctx, fsys, cfg.Skybox)
		if err != nil {
			return content, err
		}
	}

	return content, nil
}

func (c Content) withDefaults() Content {
	if len(c.Model.Indices) == 0 {
		c.Model = asset.BuiltinCube()
	}
	if len(c.Texture.Data) == 0 {
		c.Texture = asset.Checkerboard(256, 8)
	}
	if c.Skybox == nil && !c.NoSkybox {
		c.Skybox = asset.GradientFaces(64)
	}
	if c.NoSkybox {
		c.Skybox = nil
	}
	return c
}
