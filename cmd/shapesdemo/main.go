// Command shapesdemo renders one of the shapes engine's modes headlessly
// and saves the last frame as a PNG.
//
// Usage:
//
//	shapesdemo -mode particles -count 2000 -frames 120 -output particles.png
//	shapesdemo -preset presets/life.yaml -frames 0 -watch
//
// With -frames 0 the demo runs until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/shapes"
	"github.com/gogpu/shapes/internal/config"
)

type flags struct {
	backend string
	width   int
	height  int
	mode    string
	count   uint
	variant string
	bg      string
	preset  string
	watch   bool
	frames  int
	fps     int
	orbit   bool
	seed    uint64
	output  string
	thumb   int
	verbose bool
}

func main() {
	var f flags
	flag.StringVar(&f.backend, "backend", "auto", "HAL backend: auto, vulkan, metal, dx12, gl, empty")
	flag.IntVar(&f.width, "width", 800, "target width")
	flag.IntVar(&f.height, "height", 600, "target height")
	flag.StringVar(&f.mode, "mode", "polygon_row", "polygon_row, particles, flow_field, cellular_automata, fractal_tree")
	flag.UintVar(&f.count, "count", 8, "element count: polygons, particles, flow resolution, grid size or tree depth")
	flag.StringVar(&f.variant, "variant", "regular", "polygon variant: regular, star, spiral")
	flag.StringVar(&f.bg, "bg", "", "background color name or hex; empty animates")
	flag.StringVar(&f.preset, "preset", "", "YAML or TOML preset; overrides -mode, -count, -variant and -bg")
	flag.BoolVar(&f.watch, "watch", false, "reload -preset when the file changes")
	flag.IntVar(&f.frames, "frames", 120, "frames to render; 0 runs until interrupted")
	flag.IntVar(&f.fps, "fps", 60, "frames per second")
	flag.BoolVar(&f.orbit, "orbit", false, "move a synthetic pointer in a circle")
	flag.Uint64Var(&f.seed, "seed", 1, "simulation seed")
	flag.StringVar(&f.output, "output", "shapes.png", "PNG written after the last frame; empty skips it")
	flag.IntVar(&f.thumb, "thumb", 0, "scale the PNG to this width; 0 keeps the target size")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	log := newConsoleLogger(os.Stderr, level)
	shapes.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shapesdemo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, log *slog.Logger) error {
	backend, err := parseBackend(f.backend)
	if err != nil {
		return err
	}
	dev, err := shapes.OpenDevice(backend)
	if err != nil {
		return err
	}
	defer dev.Close()

	e, err := shapes.Init(ctx, dev, uint32(f.width), uint32(f.height), shapes.WithSeed(f.seed)) //nolint:gosec // flag values
	if err != nil {
		return err
	}
	defer dispose(e, log)

	preset, err := loadPreset(f)
	if err != nil {
		return err
	}
	if err := preset.Apply(e); err != nil {
		return err
	}
	log.Info("scene ready", "mode", e.Mode(), "count", e.ElementCount(), "backend", backend)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reloads := make(chan *config.Preset, 1)
	if f.watch && f.preset != "" {
		go func() {
			_ = config.Watch(ctx, f.preset, func(p *config.Preset, err error) {
				if err != nil {
					log.Warn("preset reload failed", "err", err)
					return
				}
				select {
				case reloads <- p:
				default:
				}
			})
		}()
	}

	sched := shapes.NewTickerScheduler(time.Second / time.Duration(max(f.fps, 1)))
	if err := e.Start(sched); err != nil {
		return err
	}

	frames := 0
	var onFrame func()
	onFrame = func() {
		frames++
		select {
		case p := <-reloads:
			if err := p.Apply(e); err != nil {
				log.Warn("preset apply failed", "err", err)
			} else {
				log.Info("preset reloaded", "mode", e.Mode(), "count", e.ElementCount())
			}
		default:
		}
		if f.orbit {
			orbit(e, frames, f.fps)
		}
		if !e.Running() || (f.frames > 0 && frames >= f.frames) {
			cancel()
			return
		}
		sched.RequestFrame(onFrame)
	}
	sched.RequestFrame(onFrame)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	e.Stop()
	log.Info("rendered", "frames", frames, "stats", e.Stats().String())

	if f.output == "" {
		return nil
	}
	return savePNG(e, f.output, f.thumb)
}

// disposer is the part of the engine released when run returns.
type disposer interface {
	Dispose() error
}

func dispose(d disposer, log *slog.Logger) {
	if err := d.Dispose(); err != nil {
		log.Warn("engine dispose failed", "err", err)
	}
}

func loadPreset(f flags) (*config.Preset, error) {
	if f.preset != "" {
		return config.Load(f.preset)
	}
	p := config.Default()
	p.Mode = f.mode
	p.Count = uint32(f.count) //nolint:gosec // flag value
	p.Variant = f.variant
	p.Background = f.bg
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseBackend(s string) (gputypes.Backend, error) {
	switch strings.ToLower(s) {
	case "auto":
		b, err := hal.SelectBestBackend()
		if err != nil {
			return 0, err
		}
		return b.Variant(), nil
	case "vulkan":
		return gputypes.BackendVulkan, nil
	case "metal":
		return gputypes.BackendMetal, nil
	case "dx12":
		return gputypes.BackendDX12, nil
	case "gl":
		return gputypes.BackendGL, nil
	case "empty", "noop":
		return gputypes.BackendEmpty, nil
	}
	return 0, fmt.Errorf("unknown backend %q", s)
}

// orbit feeds the engine a pointer circling the target center, one turn
// every four seconds, with the primary button held.
func orbit(e *shapes.Engine, frame, fps int) {
	w, h := e.Size()
	a := 2 * math.Pi * float64(frame) / float64(4*max(fps, 1))
	r := 0.35 * float64(min(w, h))
	_ = e.HandlePointer(gpucontext.PointerEvent{
		Type:        gpucontext.PointerMove,
		PointerType: gpucontext.PointerTypeMouse,
		X:           float64(w)/2 + r*math.Cos(a),
		Y:           float64(h)/2 + r*math.Sin(a),
		Button:      gpucontext.ButtonNone,
		Buttons:     gpucontext.ButtonsLeft,
	})
}

func savePNG(e *shapes.Engine, path string, thumb int) error {
	img, err := e.Snapshot()
	if err != nil {
		return err
	}
	var out image.Image = img
	if b := img.Bounds(); thumb > 0 && thumb < b.Dx() {
		dst := image.NewRGBA(image.Rect(0, 0, thumb, b.Dy()*thumb/b.Dx()))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		out = dst
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, out); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
