package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/token"
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// handleMediaGet streams a private object. Any authenticated role passes: the
// coarse policy of the original deployment, kept on purpose pending a product
// decision. Range requests pass through to the object store.
func (s *Server) handleMediaGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing key", errs.ErrBadRequest))
		return
	}
	claims, err := s.requireClaims(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if claims.Role == "" {
		s.writeError(w, r, fmt.Errorf("%w: token has no role", errs.ErrUnauthorized))
		return
	}
	if s.media == nil {
		s.writeError(w, r, errors.New("media store is not configured"))
		return
	}

	obj, err := s.media.Get(r.Context(), key, r.Header.Get("Range"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}
	if obj.ContentRange != "" {
		w.Header().Set("Content-Range", obj.ContentRange)
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_, _ = io.Copy(w, obj.Body)
}

// handleUploadImage accepts a multipart upload under the "file" field,
// enforcing size and content-type limits before storing.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.requireClaims(r, token.PermWrite, token.PermAdmin); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.media == nil {
		s.writeError(w, r, errors.New("media store is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, errs.ErrPayloadTooLarge)
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: missing file field", errs.ErrBadRequest))
		return
	}
	defer file.Close()

	contentType, err := sniffImageType(file, header)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := mediaKey(contentType)
	if err := s.media.Put(r.Context(), key, contentType, file); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"path": key,
		"url":  strings.TrimRight(s.mediaBaseURL, "/") + "/" + key,
	})
}

// sniffImageType validates the upload against the image allowlist, preferring
// sniffed bytes over the declared part header.
func sniffImageType(file multipart.File, header *multipart.FileHeader) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	contentType := http.DetectContentType(buf[:n])
	if _, ok := imageTypes[contentType]; ok {
		return contentType, nil
	}
	// Fall back to the declared part header only when sniffing was inconclusive.
	if contentType == "application/octet-stream" {
		declared := header.Header.Get("Content-Type")
		if _, ok := imageTypes[declared]; ok {
			return declared, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedMedia, contentType)
}

func mediaKey(contentType string) string {
	id := uuid.Must(uuid.NewV4())
	return path.Join("media", time.Now().UTC().Format("2006/01"), id.String()+imageTypes[contentType])
}
