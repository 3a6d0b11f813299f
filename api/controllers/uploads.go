package controllers

import (
	"net/http"

	"github.com/angelmondragon/inventory-backend/api/responses"
	"github.com/angelmondragon/inventory-backend/api/validators"
	"github.com/angelmondragon/inventory-backend/internal/upload"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

const videoFormField = "videos"

// UploadVideo accepts a multipart form with one file under "videos" and
// streams it to the blob store as a multipart upload.
func UploadVideo(svc upload.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("upload"))
			return
		}

		file, err := validators.ReadMultipartFile(w, r, videoFormField, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"file_name":  file.FileName,
				"size_bytes": len(file.Data),
			})
		}

		out, err := svc.UploadVideo(ctx, upload.VideoInput{
			FileName:    file.FileName,
			ContentType: file.ContentType,
			Body:        file.Data,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithJobID(ctx, out.JobID), "upload.video_stored")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}
