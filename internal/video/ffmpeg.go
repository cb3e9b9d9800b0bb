package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FFmpegSource reads frames from a recording using the ffmpeg and ffprobe
// binaries. Each ReadFrame call spawns one short-lived ffmpeg process that
// seeks and emits a single JPEG on stdout.
type FFmpegSource struct {
	meta        Metadata
	ffmpegPath  string
	ffprobePath string
}

// Open probes the recording at path and returns a frame source.
func Open(ctx context.Context, path string) (*FFmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "video: stat %s", path)
	}

	s := &FFmpegSource{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
	}

	out, err := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	).Output()
	if err != nil {
		return nil, eris.Wrapf(err, "video: probe %s", path)
	}

	meta, err := parseProbeOutput(out)
	if err != nil {
		return nil, err
	}
	meta.Path = path
	s.meta = meta

	zap.L().Debug("probed recording",
		zap.String("path", path),
		zap.Float64("duration_seconds", meta.DurationSeconds),
		zap.Float64("native_fps", meta.NativeFPS),
		zap.Int("total_frames", meta.TotalFrames),
	)

	return s, nil
}

// Metadata returns the probed recording metadata.
func (s *FFmpegSource) Metadata() Metadata {
	return s.meta
}

// ReadFrame decodes the frame nearest to the given timestamp. Seeking uses
// input-side -ss, which lands on the closest keyframe and decodes forward.
func (s *FFmpegSource) ReadFrame(ctx context.Context, timestampSeconds float64) (image.Image, error) {
	if timestampSeconds < 0 {
		timestampSeconds = 0
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-ss", strconv.FormatFloat(timestampSeconds, 'f', 3, 64),
		"-i", s.meta.Path,
		"-frames:v", "1",
		"-f", "image2",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "video: read frame at %.3fs: %s", timestampSeconds, truncate(stderr.String(), 200))
	}
	if stdout.Len() == 0 {
		return nil, eris.Errorf("video: no frame data at %.3fs", timestampSeconds)
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, eris.Wrapf(err, "video: decode frame at %.3fs", timestampSeconds)
	}
	return img, nil
}

// Close releases resources. FFmpegSource holds no persistent handles.
func (s *FFmpegSource) Close() error {
	return nil
}

// probeOutput mirrors the ffprobe JSON fields we consume.
type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NBFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// maxPlausibleFPS guards against bogus container metadata. Rates above this
// are treated as unknown and replaced with the fallback.
const (
	maxPlausibleFPS = 120.0
	fallbackFPS     = 30.0
)

func parseProbeOutput(data []byte) (Metadata, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return Metadata{}, eris.Wrap(err, "video: parse probe output")
	}

	var meta Metadata
	for _, st := range probe.Streams {
		if st.CodecType != "video" {
			continue
		}
		meta.Width = st.Width
		meta.Height = st.Height

		fps := parseRational(st.AvgFrameRate)
		if fps <= 0 {
			fps = parseRational(st.RFrameRate)
		}
		meta.NativeFPS = fps

		if n, err := strconv.Atoi(st.NBFrames); err == nil {
			meta.TotalFrames = n
		}
		if d, err := strconv.ParseFloat(st.Duration, 64); err == nil {
			meta.DurationSeconds = d
		}
		break
	}

	if meta.DurationSeconds <= 0 {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.DurationSeconds = d
		}
	}
	if meta.DurationSeconds <= 0 {
		return Metadata{}, eris.New("video: recording has no duration")
	}

	if meta.NativeFPS <= 0 || meta.NativeFPS > maxPlausibleFPS {
		zap.L().Warn("implausible frame rate, using fallback",
			zap.Float64("reported_fps", meta.NativeFPS),
			zap.Float64("fallback_fps", fallbackFPS),
		)
		meta.NativeFPS = fallbackFPS
	}

	if meta.TotalFrames <= 0 {
		meta.TotalFrames = int(meta.DurationSeconds * meta.NativeFPS)
	}

	return meta, nil
}

// parseRational parses an ffprobe rational like "30000/1001" or "30/1".
func parseRational(s string) float64 {
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
