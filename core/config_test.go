// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"

	"github.com/devblok/kdev/core"
)

func TestLoadConfigurationMissingFile(t *testing.T) {
	c := qt.New(t)

	cfg, err := core.LoadConfiguration(filepath.Join(c.TempDir(), "missing.env"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, core.DefaultConfiguration())
}

func TestSaveLoadConfiguration(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "koru.env")

	cfg := core.DefaultConfiguration()
	cfg.Renderer.VSync = true
	cfg.Renderer.ScreenWidth = 1280
	cfg.Renderer.ScreenHeight = 720
	cfg.App.PhysicalDevice = 1
	cfg.App.SaveInterval = 90 * time.Second
	cfg.App.Font = "fonts/Roboto.ttf"
	cfg.Time.FramesPerSecond = 0
	cfg.Log.Level = "info"

	c.Assert(core.SaveConfiguration(path, cfg), qt.IsNil)

	loaded, err := core.LoadConfiguration(path)
	c.Assert(err, qt.IsNil)
	c.Assert(loaded, qt.DeepEquals, cfg)
}

func TestParseConfiguration(t *testing.T) {
	c := qt.New(t)

	cfg, err := core.ParseConfiguration(core.DefaultConfiguration(), strings.NewReader(`
V_SYNC=true
PHYSICAL_DEVICE=2
SAVE_INTERVAL=10
FONT=
`))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Renderer.VSync, qt.IsTrue)
	c.Assert(cfg.App.PhysicalDevice, qt.Equals, 2)
	c.Assert(cfg.App.SaveInterval, qt.Equals, 10*time.Second)
	c.Assert(cfg.App.Font, qt.Equals, "")
	c.Assert(cfg.Renderer.SwapchainSize, qt.Equals, uint32(3))
}

func TestParseConfigurationInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{"bad bool", "V_SYNC=maybe", `invalid configuration value V_SYNC: .*`},
		{"bad int", "FPS=sixty", `invalid configuration value FPS: .*`},
		{"negative unsigned", "SWAPCHAIN_SIZE=-1", `invalid configuration value SWAPCHAIN_SIZE: .*`},
		{"negative adapter", "PHYSICAL_DEVICE=-1", `invalid configuration value PHYSICAL_DEVICE: negative adapter index -1`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			_, err := core.ParseConfiguration(core.DefaultConfiguration(), strings.NewReader(test.input))
			c.Assert(err, qt.ErrorMatches, test.err)
		})
	}
}

func TestConfigurationEnvironmentOverride(t *testing.T) {
	c := qt.New(t)

	envy.Temp(func() {
		envy.Set(core.EnvPrefix+core.KeyVSync, "true")
		envy.Set(core.EnvPrefix+core.KeyScreenWidth, "1920")

		cfg, err := core.ParseConfiguration(core.DefaultConfiguration(), strings.NewReader("V_SYNC=false\nSCREEN_WIDTH=640\n"))
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Renderer.VSync, qt.IsTrue)
		c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1920))
		c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(600))
	})
}
