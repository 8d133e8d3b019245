package media

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Logger is the minimal logging surface the processor needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Runner executes an external command and returns its combined output.
// The indirection keeps ffmpeg out of the unit tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const (
	ffmpegBinary = "ffmpeg"

	resizeTimeout = 60 * time.Second
	encodeTimeout = 300 * time.Second
)

// namedResolutions maps the add-on's resolution names onto pixel sizes.
var namedResolutions = map[string][2]int{
	"4k":    {3840, 2160},
	"1080p": {1920, 1080},
	"720p":  {1280, 720},
	"480p":  {854, 480},
}

var wxhPattern = regexp.MustCompile(`^(\d{2,5})x(\d{2,5})$`)

// ResolveResolution turns a named resolution or WxH pair into pixel
// dimensions.
//
// Parameters:
//   - target: One of 4k/1080p/720p/480p, or e.g. 1920x1080
//
// Returns:
//   - int: Width in pixels
//   - int: Height in pixels
//   - error: ErrBadResolution for anything else
func ResolveResolution(target string) (int, int, error) {
	if dims, ok := namedResolutions[strings.ToLower(target)]; ok {
		return dims[0], dims[1], nil
	}
	if m := wxhPattern.FindStringSubmatch(target); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		return w, h, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrBadResolution, target)
}

// VideoOptions control still-image looping video encoding.
type VideoOptions struct {
	// Duration is the clip length in seconds.
	Duration int

	// Framerate is the input framerate, e.g. "30" or "0.25".
	Framerate string

	// CustomArgs is a space-separated passthrough appended before the
	// output path, for installations that need codec tweaks.
	CustomArgs string
}

// Processor runs ffmpeg post-processing steps.
type Processor struct {
	runner Runner
	logger Logger
}

// NewProcessor constructs a Processor using the system ffmpeg.
func NewProcessor(logger Logger) *Processor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Processor{runner: execRunner{}, logger: logger}
}

// Resize scales an image to the target resolution.
//
// Parameters:
//   - ctx: Outer cancellation; a 60s ceiling applies regardless
//   - src: Input image path
//   - dst: Output image path, overwritten if present
//   - target: Named resolution or WxH pair
//
// Returns:
//   - error: ErrBadResolution or ErrFfmpeg with captured output
func (p *Processor) Resize(ctx context.Context, src, dst, target string) error {
	w, h, err := ResolveResolution(target)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, resizeTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", src,
		"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		dst,
	}
	out, err := p.runner.Run(ctx, ffmpegBinary, args...)
	if err != nil {
		return fmt.Errorf("%w: resize to %s: %v: %s", ErrFfmpeg, target, err, tail(out))
	}

	p.logger.Debug("resized image", "target", target, "dst", dst)
	return nil
}

// EncodeVideo renders a still image into a short looping clip suitable for
// dashboards that only accept video sources.
//
// Parameters:
//   - ctx: Outer cancellation; a 300s ceiling applies regardless
//   - src: Input image path
//   - dst: Output video path, overwritten if present
//   - opts: Duration, framerate, and optional passthrough args
//
// Returns:
//   - error: ErrFfmpeg with captured output
func (p *Processor) EncodeVideo(ctx context.Context, src, dst string, opts VideoOptions) error {
	ctx, cancel := context.WithTimeout(ctx, encodeTimeout)
	defer cancel()

	args := []string{
		"-y",
		// Input framerate: must precede -i so the still is decoded at the
		// target rate instead of being decoded at 25fps and dropped.
		"-framerate", opts.Framerate,
		"-loop", "1",
		"-i", src,
		"-t", strconv.Itoa(opts.Duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
	if extra := strings.Fields(opts.CustomArgs); len(extra) > 0 {
		args = append(args, extra...)
	}
	args = append(args, dst)

	out, err := p.runner.Run(ctx, ffmpegBinary, args...)
	if err != nil {
		return fmt.Errorf("%w: encoding video: %v: %s", ErrFfmpeg, err, tail(out))
	}

	p.logger.Debug("encoded looping video", "dst", dst, "duration", opts.Duration)
	return nil
}

// tail keeps the last chunk of ffmpeg output, which is where the actual
// error lands.
func tail(out []byte) string {
	const keep = 400
	s := strings.TrimSpace(string(out))
	if len(s) <= keep {
		return s
	}
	return "..." + s[len(s)-keep:]
}
