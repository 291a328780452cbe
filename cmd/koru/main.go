// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/native"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
)

var (
	configPath = flag.String("config", "koru.env", "Configuration file")
	assetsPath = flag.String("assets", "", "kar archive to load assets from")
	iconName   = flag.String("icon", "icon.bmp", "Window icon entry of the assets archive")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return err
		}
		if err := trace.Start(f); err != nil {
			return err
		}
		defer trace.Stop()
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		return err
	}
	logFile, err := core.SetupLog(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return err
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return err
	}
	defer sdl.VulkanUnloadLibrary()

	sdlWindow, err := newWindow(core.EngineName, cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	if err != nil {
		return err
	}
	defer sdlWindow.Destroy()

	instance, err := native.NewInstance(
		native.ApplicationInfo("koru", core.Version(0, 1, 0)),
		sdl.VulkanGetVkGetInstanceProcAddr(),
		native.InstanceConfiguration{
			DebugMode:  *debug,
			Extensions: sdlWindow.VulkanGetInstanceExtensions(),
		})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	surface, err := sdlWindow.VulkanCreateSurface(instance.Handle())
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	if *assetsPath != "" {
		icon, err := readAsset(*assetsPath, *iconName)
		if err == nil {
			err = setIcon(sdlWindow, icon)
		}
		if err != nil {
			log.WithError(err).WithField("icon", *iconName).Warn("window icon not set")
		}
	}

	platform := native.NewPlatform(&window{sdl: sdlWindow, instance: instance})
	a := app.New(cfg, platform, instance.Manager())
	a.OnSave = func(c core.Configuration) error {
		return core.SaveConfiguration(*configPath, c)
	}

	var uniforms *native.Uniforms
	a.OnCreate = func() error {
		u, err := platform.CreateUniforms(frameUniformsSize)
		if err != nil {
			return err
		}
		uniforms = u
		return nil
	}
	a.OnDestroy = func() {
		if uniforms != nil {
			uniforms.Destroy()
			uniforms = nil
		}
	}

	var (
		phase    float32
		lastTick = time.Now()
		lastSeen uint64
	)
	a.OnUpdate = func(dt time.Duration) bool {
		phase += float32(dt.Seconds())
		color := clearColor(phase)
		if t := platform.Target(); t != nil {
			t.SetClearColor(color)
		}
		if uniforms != nil {
			if err := uniforms.Update(frameUniforms{Color: color, Time: phase}.bytes()); err != nil {
				log.WithError(err).Warn("frame uniforms not updated")
			}
		}
		if since := time.Since(lastTick); since >= time.Second {
			frames := a.FrameCounter()
			log.WithField("fps", float64(frames-lastSeen)/since.Seconds()).Debug("frame rate")
			lastTick, lastSeen = time.Now(), frames
		}
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		select {
		case <-interrupt:
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := a.Run(ctx)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return runErr
}

// setIcon loads a BMP icon from data onto window.
func setIcon(window *sdl.Window, data []byte) error {
	rw, err := sdl.RWFromMem(data)
	if err != nil {
		return err
	}
	icon, err := sdl.LoadBMPRW(rw, true)
	if err != nil {
		return err
	}
	defer icon.Free()
	window.SetIcon(icon)
	return nil
}
