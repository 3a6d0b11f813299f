package validators

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
)

const multipartMemory = 32 << 20

// FormFile is one uploaded file read fully into memory.
type FormFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ReadMultipartFile parses a multipart form and returns the first file under
// field. maxBytes caps the whole request body; zero disables the cap.
func ReadMultipartFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*FormFile, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "upload too large").
				WithDetails(map[string]any{"limit_bytes": tooLarge.Limit})
		case errors.Is(err, http.ErrNotMultipart):
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart form required")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
		}
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no video file provided").
				WithDetails(map[string]any{"field": field})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("read form field %s", field))
	}
	defer file.Close()

	data, err := readFormFile(file, header.Size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}

	return &FormFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// readFormFile allocates the declared part size once instead of growing a
// buffer while reading.
func readFormFile(file io.Reader, size int64) ([]byte, error) {
	if size <= 0 {
		return io.ReadAll(file)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, err
	}
	return data, nil
}
