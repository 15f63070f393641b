package render

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/star/satview/internal/frame"
	"github.com/star/satview/internal/transform"
)

var (
	backgroundColor = color.RGBA{0x05, 0x07, 0x10, 0xff}
	bodyColor       = color.RGBA{0x1b, 0x3a, 0x6b, 0xff}
	limbColor       = color.RGBA{0x4a, 0x7f, 0xc4, 0xff}
	markerColor     = color.RGBA{0xf5, 0xe6, 0x8c, 0xff}
)

// Options configure the window.
type Options struct {
	Title      string
	Width      int
	Height     int
	TPS        int
	MarkerSize float32
}

// Game runs one frame pass per tick and draws the resulting transforms.
// Update and Draw both run on ebiten's game goroutine, so the pipeline and
// its instance buffer are only touched from there.
type Game struct {
	ctx      context.Context
	pipeline *frame.Pipeline
	camera   Camera
	marker   float32
	logger   *slog.Logger
	now      func() time.Time

	uploaded []transform.WorldTransform
	visible  int
	stats    frame.Stats
}

// NewGame creates a Game that stops when ctx is cancelled.
func NewGame(ctx context.Context, pipeline *frame.Pipeline, opts Options, logger *slog.Logger) *Game {
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = 2
	}
	return &Game{
		ctx:      ctx,
		pipeline: pipeline,
		camera:   Camera{Width: opts.Width, Height: opts.Height, ViewRadius: DefaultViewRadius},
		marker:   opts.MarkerSize,
		logger:   logger,
		now:      time.Now,
		uploaded: make([]transform.WorldTransform, pipeline.Buffer().Capacity()),
	}
}

// Update runs one frame pass.
func (g *Game) Update() error {
	if err := g.ctx.Err(); err != nil {
		g.logger.Debug("render loop stopping", "component", "render", "reason", err)
		return ebiten.Termination
	}
	g.stats = g.pipeline.Pass(g.now())
	return nil
}

// sync copies the flushed slots out of the instance buffer when the last
// pass left it dirty, and returns the number of transforms to draw.
func (g *Game) sync() int {
	if n, ok := g.pipeline.Buffer().Upload(g.uploaded); ok {
		g.visible = n
	}
	return g.visible
}

func (g *Game) Draw(screen *ebiten.Image) {
	n := g.sync()
	screen.Fill(backgroundColor)

	cx, cy := g.camera.Center()
	r := float32(g.camera.Scale())
	vector.DrawFilledCircle(screen, cx, cy, r, bodyColor, true)
	vector.StrokeCircle(screen, cx, cy, r, 1, limbColor, true)

	half := g.marker / 2
	for i := 0; i < n; i++ {
		x, y, ok := g.camera.Project(&g.uploaded[i])
		if !ok {
			continue
		}
		vector.DrawFilledRect(screen, x-half, y-half, g.marker, g.marker, markerColor, false)
	}

	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"gen %d  objects %d  unavailable %d  pass %s  tps %.0f",
		g.stats.Generation, g.stats.Objects, g.stats.Unavailable,
		g.stats.Duration.Round(time.Microsecond), ebiten.ActualTPS(),
	))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.camera.Width, g.camera.Height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it is closed or ctx is cancelled.
func Run(ctx context.Context, pipeline *frame.Pipeline, opts Options, logger *slog.Logger) error {
	if opts.Title == "" {
		opts.Title = "satview"
	}
	if opts.TPS <= 0 {
		opts.TPS = 60
	}
	g := NewGame(ctx, pipeline, opts, logger)
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(opts.TPS)

	logger.Info("render window starting", "component", "render", "width", opts.Width, "height", opts.Height, "tps", opts.TPS)
	err := ebiten.RunGame(g)
	if err == ebiten.Termination {
		err = nil
	}
	logger.Info("render window closed", "component", "render")
	return err
}
