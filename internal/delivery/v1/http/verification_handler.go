package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	maxMemory = 32 << 20
	// запас на заголовки multipart сверх размера файлов
	multipartOverhead = 1 << 20
)

type VerificationHandler struct {
	uc     usecase.VerificationUC
	logger logger.Logger
}

func NewVerificationHandler(uc usecase.VerificationUC, logger logger.Logger) *VerificationHandler {
	return &VerificationHandler{uc: uc, logger: logger}
}

func (h *VerificationHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		h.logger.Errorf(err, "%s %s: %d", r.Method, r.URL.Path, code)
	} else {
		h.logger.Warnf("%s %s: %d %v", r.Method, r.URL.Path, code, err)
	}
	WriteError(w, err)
}

// addReferences
//
//	@Summary		Добавление эталонов
//	@Description	Векторизует изображения и добавляет их в набор эталонов. Либо добавляются все, либо ни одного.
//	@Tags			references
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			images	formData	file				true	"Эталонные изображения (jpeg, png, webp), до 10 файлов по 15 МиБ"
//	@Success		201		{object}	ReferencesResponse	"Добавленные эталоны"
//	@Failure		400		{object}	ErrorResponse		"Ошибка валидации или декодирования"
//	@Failure		503		{object}	ErrorResponse		"Модель недоступна"
//	@Router			/references [post]
func (h *VerificationHandler) addReferences(w http.ResponseWriter, r *http.Request) {
	const maxTotalRequestSize = usecase.MaxImagesPerRequest*usecase.MaxImageSize + multipartOverhead

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.fail(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	images, err := parseImages(r.MultipartForm.File["images"], usecase.MaxImagesPerRequest)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	refs, err := h.uc.AddReferences(r.Context(), usecase.NewAddReferencesReq(images))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toReferencesResponse(h.uc.ModelVersion(), refs))
}

// listReferences
//
//	@Summary	Список эталонов
//	@Tags		references
//	@Produce	json
//	@Success	200	{object}	ReferencesResponse
//	@Router		/references [get]
func (h *VerificationHandler) listReferences(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, toReferencesResponse(h.uc.ModelVersion(), h.uc.ListReferences(r.Context())))
}

// resetReferences
//
//	@Summary	Очистка набора эталонов
//	@Tags		references
//	@Success	204
//	@Router		/references [delete]
func (h *VerificationHandler) resetReferences(w http.ResponseWriter, r *http.Request) {
	removed := h.uc.ResetReferences(r.Context())
	h.logger.Infof("reference set cleared, %d removed", removed)
	w.WriteHeader(http.StatusNoContent)
}

// verify
//
//	@Summary		Проверка изображения
//	@Description	Сравнивает изображение с эталонами. Совпадение, если косинусное сходство строго больше порога.
//	@Tags			verify
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file			true	"Проверяемое изображение"
//	@Success		200		{object}	VerifyResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации или декодирования"
//	@Failure		409		{object}	ErrorResponse	"Набор эталонов пуст"
//	@Failure		422		{object}	ErrorResponse	"Несовместимые векторы"
//	@Router			/verify [post]
func (h *VerificationHandler) verify(w http.ResponseWriter, r *http.Request) {
	const maxTotalRequestSize = usecase.MaxImageSize + multipartOverhead

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.fail(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	images, err := parseImages(r.MultipartForm.File["image"], 1)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.uc.Verify(r.Context(), usecase.NewVerifyReq(images[0]))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toVerifyResponse(res))
}

// getImage
//
//	@Summary	Изображение эталона или запроса
//	@Tags		images
//	@Produce	image/jpeg,image/png,image/webp
//	@Param		key	path	string	true	"Ключ объекта, например references/<uuid>.jpg"
//	@Success	200	{file}	binary
//	@Failure	404	{object}	ErrorResponse
//	@Router		/images/{key} [get]
func (h *VerificationHandler) getImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.uc.GetImage(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer img.Body.Close()

	w.Header().Set("Content-Type", img.ContentType)
	if img.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, img.Body); err != nil {
		h.logger.Warnf("stream image: %v", err)
	}
}

// listVerifications
//
//	@Summary	Последние проверки
//	@Tags		verify
//	@Produce	json
//	@Param		limit	query		int	false	"Сколько записей вернуть (1..100, по умолчанию 20)"
//	@Success	200		{array}		VerificationResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/verifications [get]
func (h *VerificationHandler) listVerifications(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, usecase.DefaultHistoryLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items, err := h.uc.ListVerifications(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toVerificationResponses(items))
}

// healthz
//
//	@Summary	Проверка готовности
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/healthz [get]
func (h *VerificationHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, HealthResponse{Status: "ok", ModelVersion: h.uc.ModelVersion()})
}
