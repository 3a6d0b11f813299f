// Package transcoder turns stored videos into preview images with the ffmpeg CLI.
package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/inventory-backend/pkg/config"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

const (
	thumbnailPrefix      = "thumbnails/"
	thumbnailContentType = "image/jpeg"
	maxStderrBytes       = 4096

	// protocols ffmpeg may open while reading a remote input
	inputProtocols = "https,http,tcp,tls"
)

// Uploader stores bytes under a key and returns the durable reference.
type Uploader interface {
	Upload(ctx context.Context, payload []byte, contentType, key string) (string, error)
}

// runCommand executes name with args and returns combined stderr on failure.
type runCommand func(ctx context.Context, name string, args ...string) error

// FFmpeg extracts one representative frame of a video, scales it and
// uploads it as a JPEG.
type FFmpeg struct {
	binary   string
	width    int
	height   int
	uploader Uploader
	logg     *logger.Logger
	run      runCommand
	newID    func() string
	tempDir  string
}

// NewFFmpeg builds a thumbnail generator from config.
func NewFFmpeg(cfg config.ThumbnailConfig, uploader Uploader, logg *logger.Logger) (*FFmpeg, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("thumbnail size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	binary := strings.TrimSpace(cfg.FFmpegPath)
	if binary == "" {
		binary = "ffmpeg"
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "transcoder", Output: io.Discard})
	}
	return &FFmpeg{
		binary:   binary,
		width:    cfg.Width,
		height:   cfg.Height,
		uploader: uploader,
		logg:     logg,
		run:      execCommand,
		newID:    uuid.NewString,
	}, nil
}

// Generate renders a thumbnail for videoURL and returns the uploaded reference.
// The local frame is removed whether or not the upload succeeds.
func (f *FFmpeg) Generate(ctx context.Context, videoURL string) (string, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return "", fmt.Errorf("video url is required")
	}
	if !isRemoteURL(videoURL) {
		return "", fmt.Errorf("video url must use http or https")
	}

	dir, err := os.MkdirTemp(f.tempDir, "thumb-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			f.logg.Warn(f.logg.WithField(ctx, "dir", dir), "thumbnail.cleanup_failed")
		}
	}()

	out := filepath.Join(dir, "frame.jpeg")
	if err := f.run(ctx, f.binary, f.args(videoURL, out)...); err != nil {
		return "", fmt.Errorf("ffmpeg: %w", err)
	}

	frame, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("read thumbnail: %w", err)
	}
	if len(frame) == 0 {
		return "", fmt.Errorf("ffmpeg produced an empty thumbnail")
	}

	key := thumbnailPrefix + f.newID() + ".jpeg"
	ref, err := f.uploader.Upload(ctx, frame, thumbnailContentType, key)
	if err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	f.logg.Info(f.logg.WithField(ctx, "thumbnail_key", key), "thumbnail.generated")
	return ref, nil
}

func (f *FFmpeg) args(input, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-protocol_whitelist", inputProtocols,
		"-i", input,
		"-vf", fmt.Sprintf("thumbnail,scale=%d:%d", f.width, f.height),
		"-frames:v", "1",
		output,
	}
}

// isRemoteURL keeps ffmpeg away from local files and its pseudo protocols.
func isRemoteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

func execCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrBytes {
			msg = msg[len(msg)-maxStderrBytes:]
		}
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
