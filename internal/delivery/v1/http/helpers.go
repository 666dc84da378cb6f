package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// errorStatuses задаёт соответствие ошибок и HTTP-статусов. Порядок важен: ошибка декодирования
// может одновременно содержать ErrUnsupportedMediaType.
var errorStatuses = []struct {
	err    error
	status int
}{
	{e.ErrImageDecode, http.StatusBadRequest},
	{e.ErrUnsupportedMediaType, http.StatusBadRequest},
	{e.ErrExpectedMultipart, http.StatusBadRequest},
	{e.ErrNoImages, http.StatusBadRequest},
	{e.ErrTooManyImages, http.StatusBadRequest},
	{e.ErrFileTooLarge, http.StatusBadRequest},
	{e.ErrInvalidLimit, http.StatusBadRequest},
	{e.ErrStatusBadRequest, http.StatusBadRequest},
	{e.ErrEmptyReferenceSet, http.StatusConflict},
	{e.ErrDimensionMismatch, http.StatusUnprocessableEntity},
	{e.ErrModelMismatch, http.StatusUnprocessableEntity},
	{e.ErrImageNotFound, http.StatusNotFound},
	{e.ErrModelUnavailable, http.StatusServiceUnavailable},
}

func ToHTTPResponse(err error) (int, string) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}

	return http.StatusInternalServerError, e.ErrInternalServerError.Error()
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: request exceeds %d bytes", e.ErrFileTooLarge, tooLarge.Limit))
		}
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %v", e.ErrStatusBadRequest, err))
	}

	return nil
}

func parseImages(files []*multipart.FileHeader, maxCount int) ([]usecase.UploadedImage, error) {
	if len(files) == 0 {
		return nil, e.ErrNoImages
	}
	if len(files) > maxCount {
		return nil, fmt.Errorf("%w: %d, max %d", e.ErrTooManyImages, len(files), maxCount)
	}

	images := make([]usecase.UploadedImage, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh, usecase.MaxImageSize)
		if err != nil {
			return nil, err
		}
		images = append(images, usecase.NewUploadedImage(data, fh.Header.Get("Content-Type"), fh.Filename))
	}
	return images, nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if fh.Size > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, e.Wrap(fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, e.Wrap(fh.Filename, err)
	}
	if int64(len(data)) > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	return data, nil
}

// parseLimit читает параметр limit; пустое значение даёт def.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", e.ErrInvalidLimit, raw)
	}

	return limit, nil
}
