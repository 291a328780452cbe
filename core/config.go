// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix is prepended to configuration keys when
// looking up environment overrides.
const EnvPrefix = "KORU_"

// Configuration keys, as stored in the configuration file.
const (
	KeyVSync          = "V_SYNC"
	KeyPhysicalDevice = "PHYSICAL_DEVICE"
	KeySaveInterval   = "SAVE_INTERVAL"
	KeyAutoSave       = "AUTO_SAVE"
	KeyAutoLoad       = "AUTO_LOAD"
	KeySaveWindow     = "SAVE_WINDOW"
	KeyFont           = "FONT"
	KeyFPS            = "FPS"
	KeySwapchainSize  = "SWAPCHAIN_SIZE"
	KeyScreenWidth    = "SCREEN_WIDTH"
	KeyScreenHeight   = "SCREEN_HEIGHT"
	KeyLogDebug       = "LOG_DEBUG"
	KeyLogLevel       = "LOG_LEVEL"
	KeyLogFile        = "LOG_FILE"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
	App      AppConfiguration
	Log      LogConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize uint32
	VSync         bool

	ScreenWidth  uint32
	ScreenHeight uint32
}

// AppConfiguration holds the settings the frame loop is built from.
type AppConfiguration struct {
	// PhysicalDevice is the index of the adapter to use.
	PhysicalDevice int

	SaveWindow   bool
	AutoLoad     bool
	AutoSave     bool
	SaveInterval time.Duration

	// Font is the kar archive entry the gui font is loaded from.
	Font string
}

// DefaultConfiguration returns the settings used when
// nothing is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
		},
		Renderer: RendererConfiguration{
			SwapchainSize: 3,
			VSync:         false,
			ScreenWidth:   800,
			ScreenHeight:  600,
		},
		App: AppConfiguration{
			PhysicalDevice: 0,
			SaveWindow:     true,
			AutoLoad:       true,
			AutoSave:       true,
			SaveInterval:   300 * time.Second,
		},
		Log: LogConfiguration{
			Debug: false,
			File:  DefaultLogFile,
		},
	}
}

// LoadConfiguration reads the configuration file at path on top of
// the defaults. A missing file is not an error. Environment variables
// prefixed with EnvPrefix take precedence over the file.
func LoadConfiguration(path string) (Configuration, error) {
	values, err := godotenv.Read(path)
	if err != nil && !os.IsNotExist(err) {
		return Configuration{}, fmt.Errorf("read configuration %q: %w", path, err)
	}
	return fromValues(DefaultConfiguration(), values)
}

// ParseConfiguration reads configuration values from r on top of base.
func ParseConfiguration(base Configuration, r io.Reader) (Configuration, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return Configuration{}, fmt.Errorf("parse configuration: %w", err)
	}
	return fromValues(base, values)
}

// SaveConfiguration writes cfg to the file at path.
func SaveConfiguration(path string, cfg Configuration) error {
	if err := godotenv.Write(cfg.Values(), path); err != nil {
		return fmt.Errorf("write configuration %q: %w", path, err)
	}
	log.WithField("path", path).Debug("configuration saved")
	return nil
}

// Values flattens cfg into its key-value form.
func (cfg Configuration) Values() map[string]string {
	return map[string]string{
		KeyVSync:          strconv.FormatBool(cfg.Renderer.VSync),
		KeyPhysicalDevice: strconv.Itoa(cfg.App.PhysicalDevice),
		KeySaveInterval:   strconv.Itoa(int(cfg.App.SaveInterval / time.Second)),
		KeyAutoSave:       strconv.FormatBool(cfg.App.AutoSave),
		KeyAutoLoad:       strconv.FormatBool(cfg.App.AutoLoad),
		KeySaveWindow:     strconv.FormatBool(cfg.App.SaveWindow),
		KeyFont:           cfg.App.Font,
		KeyFPS:            strconv.Itoa(cfg.Time.FramesPerSecond),
		KeySwapchainSize:  strconv.FormatUint(uint64(cfg.Renderer.SwapchainSize), 10),
		KeyScreenWidth:    strconv.FormatUint(uint64(cfg.Renderer.ScreenWidth), 10),
		KeyScreenHeight:   strconv.FormatUint(uint64(cfg.Renderer.ScreenHeight), 10),
		KeyLogDebug:       strconv.FormatBool(cfg.Log.Debug),
		KeyLogLevel:       cfg.Log.Level,
		KeyLogFile:        cfg.Log.File,
	}
}

type valueReader struct {
	values map[string]string
	err    error
}

// lookup returns the environment override or the file value.
func (r *valueReader) lookup(key string) (string, bool) {
	fileValue, ok := r.values[key]
	value := envy.Get(EnvPrefix+key, fileValue)
	return value, ok || value != ""
}

// typed is lookup for non-string values, where empty means unset.
func (r *valueReader) typed(key string) (string, bool) {
	value, _ := r.lookup(key)
	return value, value != "" && r.err == nil
}

func (r *valueReader) boolean(key string, dst *bool) {
	value, ok := r.typed(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func (r *valueReader) integer(key string, dst *int) {
	value, ok := r.typed(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = i
}

func (r *valueReader) unsigned(key string, dst *uint32) {
	value, ok := r.typed(key)
	if !ok {
		return
	}
	u, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = uint32(u)
}

func (r *valueReader) seconds(key string, dst *time.Duration) {
	s := int(*dst / time.Second)
	r.integer(key, &s)
	*dst = time.Duration(s) * time.Second
}

func (r *valueReader) str(key string, dst *string) {
	if value, ok := r.lookup(key); ok {
		*dst = value
	}
}

func fromValues(cfg Configuration, values map[string]string) (Configuration, error) {
	r := valueReader{values: values}

	r.boolean(KeyVSync, &cfg.Renderer.VSync)
	r.integer(KeyPhysicalDevice, &cfg.App.PhysicalDevice)
	r.seconds(KeySaveInterval, &cfg.App.SaveInterval)
	r.boolean(KeyAutoSave, &cfg.App.AutoSave)
	r.boolean(KeyAutoLoad, &cfg.App.AutoLoad)
	r.boolean(KeySaveWindow, &cfg.App.SaveWindow)
	r.str(KeyFont, &cfg.App.Font)
	r.integer(KeyFPS, &cfg.Time.FramesPerSecond)
	r.unsigned(KeySwapchainSize, &cfg.Renderer.SwapchainSize)
	r.unsigned(KeyScreenWidth, &cfg.Renderer.ScreenWidth)
	r.unsigned(KeyScreenHeight, &cfg.Renderer.ScreenHeight)
	r.boolean(KeyLogDebug, &cfg.Log.Debug)
	r.str(KeyLogLevel, &cfg.Log.Level)
	r.str(KeyLogFile, &cfg.Log.File)

	if r.err != nil {
		return Configuration{}, fmt.Errorf("invalid configuration value %w", r.err)
	}
	if cfg.App.PhysicalDevice < 0 {
		return Configuration{}, fmt.Errorf("invalid configuration value %s: negative adapter index %d",
			KeyPhysicalDevice, cfg.App.PhysicalDevice)
	}
	return cfg, nil
}
