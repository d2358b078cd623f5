package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/vkngwrapper/scenedemo/internal/app"
	"github.com/vkngwrapper/scenedemo/internal/config"
)

const configEnv = "SCENEDEMO_CONFIG"

func main() {
	// SDL and the presentation engine need every call on the main thread.
	runtime.LockOSThread()

	err := run()
	if err != nil {
		slog.Error("scenedemo failed", slog.String("error", fmt.Sprintf("%+v", err)))
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv(configEnv)
	if path == "" {
		path = "scenedemo.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.ApplyArgs(os.Args[1:])
	err = cfg.Validate()
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	content, err := app.LoadContent(context.Background(), os.DirFS("."), cfg.Assets, logger)
	if err != nil {
		return err
	}

	demo, err := app.New(app.Options{
		Config:  cfg,
		Content: content,
		In:      os.Stdin,
		Out:     os.Stdout,
	}, logger)
	if err != nil {
		return err
	}
	defer demo.Close()

	return demo.Run()
}
