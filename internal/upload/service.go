package upload

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
)

const (
	videoKeyPrefix   = "input/"
	defaultVideoName = "video.mp4"
	octetStream      = "application/octet-stream"
)

// Service exposes video upload semantics on top of the multipart coordinator.
type Service interface {
	UploadVideo(ctx context.Context, input VideoInput) (*VideoOutput, error)
}

type service struct {
	uploader Uploader
	newJobID func() string
}

// NewService constructs a video upload service.
func NewService(uploader Uploader) (Service, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	return &service{
		uploader: uploader,
		newJobID: func() string { return uuid.NewString() },
	}, nil
}

// VideoInput is one uploaded file as received from the client.
type VideoInput struct {
	FileName    string
	ContentType string
	Body        []byte
}

// VideoOutput is the durable reference returned to the client. JobID names the
// processing job whose side-car artifacts later enrich the room.
type VideoOutput struct {
	URL         string `json:"url"`
	JobID       string `json:"job_id"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
}

func (s *service) UploadVideo(ctx context.Context, input VideoInput) (*VideoOutput, error) {
	if len(input.Body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no video file provided")
	}

	contentType, err := resolveContentType(input.ContentType, input.Body)
	if err != nil {
		return nil, err
	}

	jobID := s.newJobID()
	key := videoKeyPrefix + jobID + "-" + sanitizeFileName(input.FileName)

	url, err := s.uploader.Upload(ctx, input.Body, contentType, key)
	if err != nil {
		return nil, err
	}

	return &VideoOutput{
		URL:         url,
		JobID:       jobID,
		Key:         key,
		ContentType: contentType,
		SizeBytes:   len(input.Body),
	}, nil
}

// resolveContentType trusts a declared media type and sniffs the body only
// when the client sent nothing useful. Only video types are accepted.
func resolveContentType(declared string, body []byte) (string, error) {
	contentType := ""
	if declared = strings.TrimSpace(declared); declared != "" {
		parsed, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid content type")
		}
		contentType = strings.ToLower(parsed)
	}
	if contentType == "" || contentType == octetStream {
		detected := mimetype.Detect(body)
		contentType = strings.ToLower(strings.SplitN(detected.String(), ";", 2)[0])
	}
	if !strings.HasPrefix(contentType, "video/") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is not a video").
			WithDetails(map[string]any{"content_type": contentType})
	}
	return contentType, nil
}

// sanitizeFileName keeps the base name, drops separators and control runes,
// and replaces whitespace with underscores.
func sanitizeFileName(value string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(value), "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '/' || r == '\\':
			continue
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		return defaultVideoName
	}
	return name
}
