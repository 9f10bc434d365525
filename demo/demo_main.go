package main

import (
	"flag"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/Dolbhi/deferred-renderer/app"
	"github.com/Dolbhi/deferred-renderer/core"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "renderer.toml", "Path to the TOML config")
	modelPath := flag.String("model", "", "OBJ model for the scene center (unit cube when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	if *debug {
		cfg.Debug = true
	}

	log := core.NewDefaultLogger("demo", cfg.Debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application, err := app.NewApp(window, cfg, log)
	if err != nil {
		log.Fatalf("renderer init: %v", err)
	}
	defer application.Release()

	demo, err := buildScene(application, window, *modelPath)
	if err != nil {
		log.Fatalf("scene init: %v", err)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	var lastX, lastY float64
	firstMouse := true
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if firstMouse {
			lastX, lastY = xpos, ypos
			firstMouse = false
		}
		dx := float32(xpos - lastX)
		dy := float32(ypos - lastY)
		lastX, lastY = xpos, ypos

		if demo.mouseCaptured {
			application.Camera.Rotate(dx, dy)
		}
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyF:
			application.ToggleOverlay()
		case glfw.KeyTab:
			demo.mouseCaptured = !demo.mouseCaptured
			if demo.mouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
			firstMouse = true
		}
	})

	last := glfw.GetTime()
	for !window.ShouldClose() {
		glfw.PollEvents()

		now := glfw.GetTime()
		dt := float32(now - last)
		last = now

		demo.update(dt)
		if err := application.RenderFrame(); err != nil {
			log.Errorf("render: %v", err)
		}
	}
}
