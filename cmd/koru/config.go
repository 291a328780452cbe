// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/utility/kar"
)

var resources = packr.NewBox("./resources")

// loadConfiguration applies the bundled defaults, then the file
// at path when it exists and AutoLoad is set.
func loadConfiguration(path string) (core.Configuration, error) {
	defaults, err := resources.FindString("default.env")
	if err != nil {
		return core.Configuration{}, fmt.Errorf("bundled defaults: %w", err)
	}
	return layerConfiguration(strings.NewReader(defaults), path)
}

func layerConfiguration(defaults io.Reader, path string) (core.Configuration, error) {
	cfg, err := core.ParseConfiguration(core.DefaultConfiguration(), defaults)
	if err != nil {
		return core.Configuration{}, err
	}
	if !cfg.App.AutoLoad {
		return cfg, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return core.Configuration{}, err
	}
	defer f.Close()
	return core.ParseConfiguration(cfg, f)
}

// clearColor cycles a dim colour around the grey axis.
func clearColor(phase float32) mgl32.Vec4 {
	rot := mgl32.HomogRotate3D(phase, mgl32.Vec3{1, 1, 1}.Normalize())
	c := rot.Mul4x1(mgl32.Vec4{0.2, 0.05, 0.05, 0})
	return mgl32.Vec4{
		0.05 + mgl32.Abs(c.X()),
		0.05 + mgl32.Abs(c.Y()),
		0.05 + mgl32.Abs(c.Z()),
		1,
	}
}

// readAsset reads one entry of the kar archive at path.
func readAsset(path, name string) ([]byte, error) {
	archive, err := kar.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	header := archive.Header()
	log.WithFields(log.Fields{
		"path":    path,
		"author":  header.Author,
		"version": header.Version,
		"files":   len(archive.Files()),
	}).Debug("assets opened")
	return archive.ReadAll(name)
}
