package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	added     [][]usecase.UploadedImage
	verifyErr error
	addErr    error
	refs      []domain.Reference
	lastLimit int
	resets    int
}

func (f *fakeUC) AddReferences(_ context.Context, req *usecase.AddReferencesReq) ([]domain.Reference, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, req.Images)
	refs := make([]domain.Reference, len(req.Images))
	for i, img := range req.Images {
		refs[i] = domain.Reference{
			ID:    fmt.Sprintf("ref-%d", i),
			Name:  img.Name,
			Image: domain.ImageHandle{ObjectKey: fmt.Sprintf("references/%d.png", i), ContentType: "image/png"},
		}
	}
	f.refs = append(f.refs, refs...)
	return refs, nil
}

func (f *fakeUC) ListReferences(context.Context) []domain.Reference { return f.refs }

func (f *fakeUC) ResetReferences(context.Context) int {
	f.resets++
	n := len(f.refs)
	f.refs = nil
	return n
}

func (f *fakeUC) Verify(_ context.Context, req *usecase.VerifyReq) (*usecase.VerifyRes, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &usecase.VerifyRes{
		VerificationID: "ver-1",
		IsMatch:        true,
		Score:          0.93,
		Threshold:      0.8,
		BestMatch:      domain.Reference{ID: "ref-0", Image: domain.ImageHandle{ObjectKey: "references/0.png"}},
		QueryImage:     domain.ImageHandle{ObjectKey: "queries/q.png"},
		ModelVersion:   "test/caffe",
	}, nil
}

func (f *fakeUC) GetImage(_ context.Context, key string) (*usecase.StoredImage, error) {
	if key != "references/0.png" {
		return nil, e.Wrap("fake", e.ErrImageNotFound)
	}
	return &usecase.StoredImage{Body: io.NopCloser(strings.NewReader("PNGDATA")), Size: 7, ContentType: "image/png"}, nil
}

func (f *fakeUC) ListVerifications(_ context.Context, limit int) ([]domain.Verification, error) {
	if limit > usecase.MaxHistoryLimit {
		return nil, e.ErrInvalidLimit
	}
	f.lastLimit = limit
	return []domain.Verification{{ID: "ver-1", IsMatch: true, BestMatchImage: domain.ImageHandle{ObjectKey: "references/0.png"}}}, nil
}

func (f *fakeUC) ModelVersion() string { return "test/caffe" }

func newTestRouter(uc usecase.VerificationUC) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.Nop{}).Init(uc)
	return mux
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAddReferences(t *testing.T) {
	uc := &fakeUC{}
	body, ct := multipartBody(t, "images", map[string][]byte{"a.png": []byte("a"), "b.png": []byte("b")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/references", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, newTestRouter(uc), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var res ReferencesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "test/caffe", res.ModelVersion)
	assert.Equal(t, "/api/v1/images/references/0.png", res.References[0].ImageURL)
	require.Len(t, uc.added, 1)
	assert.Len(t, uc.added[0], 2)
}

func TestAddReferencesRequiresMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/references", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, newTestRouter(&fakeUC{}), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrExpectedMultipart.Error(), decodeError(t, rec).Message)
}

func TestAddReferencesWithoutFiles(t *testing.T) {
	body, ct := multipartBody(t, "other", map[string][]byte{"a.png": []byte("a")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/references", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, newTestRouter(&fakeUC{}), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrNoImages.Error(), decodeError(t, rec).Message)
}

func TestAddReferencesTooManyFiles(t *testing.T) {
	files := map[string][]byte{}
	for i := 0; i <= usecase.MaxImagesPerRequest; i++ {
		files[fmt.Sprintf("%d.png", i)] = []byte("x")
	}
	body, ct := multipartBody(t, "images", files)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/references", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, newTestRouter(&fakeUC{}), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrTooManyImages.Error(), decodeError(t, rec).Message)
}

func TestVerify(t *testing.T) {
	body, ct := multipartBody(t, "image", map[string][]byte{"q.png": []byte("q")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, newTestRouter(&fakeUC{}), req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.IsMatch)
	assert.Equal(t, 0.93, res.Score)
	assert.Equal(t, "ref-0", res.BestMatch.ID)
	assert.Equal(t, "/api/v1/images/queries/q.png", res.QueryImageURL)
}

func TestVerifyErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{e.Wrap("op", fmt.Errorf("%w: %w", e.ErrImageDecode, e.ErrUnsupportedMediaType)), http.StatusBadRequest},
		{e.Wrap("op", e.ErrEmptyReferenceSet), http.StatusConflict},
		{e.Wrap("op", e.ErrDimensionMismatch), http.StatusUnprocessableEntity},
		{e.Wrap("op", e.ErrModelMismatch), http.StatusUnprocessableEntity},
		{e.Wrap("op", e.ErrModelUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			body, ct := multipartBody(t, "image", map[string][]byte{"q.png": []byte("q")})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", body)
			req.Header.Set("Content-Type", ct)

			rec := do(t, newTestRouter(&fakeUC{verifyErr: tc.err}), req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status, decodeError(t, rec).Code)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	code, msg := ToHTTPResponse(fmt.Errorf("dial tcp 10.0.0.5:5432: secret"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, e.ErrInternalServerError.Error(), msg)
}

func TestListAndResetReferences(t *testing.T) {
	uc := &fakeUC{refs: []domain.Reference{{ID: "r1"}, {ID: "r2"}}}
	h := newTestRouter(uc)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/references", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var res ReferencesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Count)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/references", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, uc.resets)
}

func TestGetImage(t *testing.T) {
	h := newTestRouter(&fakeUC{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/images/references/0.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "7", rec.Header().Get("Content-Length"))
	assert.Equal(t, "PNGDATA", rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/images/references/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListVerifications(t *testing.T) {
	uc := &fakeUC{}
	h := newTestRouter(uc)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/verifications", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.DefaultHistoryLimit, uc.lastLimit)

	var res []VerificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "/api/v1/images/references/0.png", res[0].BestMatchImageURL)
	assert.Empty(t, res[0].QueryImageURL)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/verifications?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/verifications?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(&fakeUC{}), httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "test/caffe", res.ModelVersion)
}
