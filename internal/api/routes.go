package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/apperror"
	"github.com/abdul-hamid-achik/s3drop/internal/filetype"
	"github.com/abdul-hamid-achik/s3drop/internal/health"
	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/abdul-hamid-achik/s3drop/internal/upload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultMaxUploadSize = 25 * 1024 * 1024

type Config struct {
	Uploader *upload.Uploader
	// Storage is the server-side bucket configuration used for every request.
	Storage       *storage.Config
	MaxUploadSize int64
	// Limiter is optional. The caller owns it and must Stop it.
	Limiter *RateLimiter
}

type SignedURLResponse struct {
	Key       string `json:"key"`
	SignedURL string `json:"signedUrl"`
}

type URLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func NewRouter(cfg *Config) http.Handler {
	mux := http.NewServeMux()

	checker := health.NewChecker(5*time.Second).
		Register("storage", func(ctx context.Context) error {
			return cfg.Uploader.Check(ctx, cfg.Storage)
		})
	mux.HandleFunc("GET /health/live", health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", health.ReadinessHandler(checker))
	mux.Handle("GET /metrics", promhttp.Handler())

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /v1/upload", uploadHandler(cfg))
	apiMux.HandleFunc("GET /v1/signed-url", signedURLHandler(cfg))
	apiMux.HandleFunc("GET /v1/url", urlHandler(cfg))

	var handler http.Handler = apiMux
	if cfg.Limiter != nil {
		handler = RateLimit(cfg.Limiter)(handler)
	}
	mux.Handle("/v1/", handler)

	return mux
}

func uploadHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		maxSize := cfg.MaxUploadSize
		if maxSize <= 0 {
			maxSize = DefaultMaxUploadSize
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrFileTooLarge))
				return
			}
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrMissingFile))
			return
		}
		defer func() { _ = file.Close() }()

		fetchSigned, err := formBool(r.FormValue("fetchSignedUrl"))
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Validation("invalid fetchSignedUrl: %s", r.FormValue("fetchSignedUrl")))
			return
		}

		contentType := mediaType(header.Header.Get("Content-Type"))

		spool, err := spoolToDisk(file)
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}
		defer func() { _ = os.Remove(spool) }()

		log.Info("upload received", "filename", header.Filename, "size", header.Size, "content_type", contentType)

		result, err := cfg.Uploader.Upload(r.Context(), cfg.Storage, upload.File{
			Path:     spool,
			MIMEType: contentType,
		}, upload.Options{
			Key:            r.FormValue("key"),
			FetchSignedURL: fetchSigned,
			FileType:       filetype.FileType(r.FormValue("fileType")),
		})
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func signedURLHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")

		var opts storage.SignOptions
		if v := r.URL.Query().Get("expiresIn"); v != "" {
			secs, err := strconv.Atoi(v)
			if err != nil || secs <= 0 {
				apperror.WriteJSON(w, r, apperror.Validation("invalid expiresIn: %s", v))
				return
			}
			opts.ExpiresInSeconds = secs
		}

		signed, err := cfg.Uploader.SignedURL(r.Context(), cfg.Storage, key, opts)
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, SignedURLResponse{Key: key, SignedURL: signed})
	}
}

func urlHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if err := upload.ValidateConfig(cfg.Storage); err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}
		if strings.TrimSpace(key) == "" {
			apperror.WriteJSON(w, r, apperror.Validation("key is required"))
			return
		}

		writeJSON(w, http.StatusOK, URLResponse{Key: key, URL: upload.UnsignedURL(cfg.Storage, key)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mediaType drops parameters such as charset. Unparsable values are passed
// through so the validator can report them.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(contentType)
	}
	return mt
}

func formBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func spoolToDisk(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "s3drop-upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
