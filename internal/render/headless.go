package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/star/satview/internal/frame"
	"github.com/star/satview/internal/transform"
)

// RunHeadless drives the pipeline at fps without a display, consuming each
// flushed buffer the way the window would. It blocks until ctx is cancelled.
func RunHeadless(ctx context.Context, pipeline *frame.Pipeline, fps int, logger *slog.Logger) error {
	if fps <= 0 {
		fps = 30
	}
	interval := time.Second / time.Duration(fps)
	uploaded := make([]transform.WorldTransform, pipeline.Buffer().Capacity())

	logger.Info("headless frame driver starting", "component", "render", "fps", fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frames uint64
	for {
		select {
		case <-ctx.Done():
			logger.Info("headless frame driver stopped", "component", "render", "frames", frames)
			return nil
		case now := <-ticker.C:
			pipeline.Pass(now)
			pipeline.Buffer().Upload(uploaded)
			frames++
		}
	}
}
