// Package embedder превращает изображение в вектор признаков с помощью предобученного backbone
// (ResNet50 без классификационной головы, с global average pooling).
package embedder

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/pkg/e"
)

// Backbone выполняет один прямой проход сети над подготовленным входным тензором.
type Backbone interface {
	// Forward возвращает выход pooling-слоя в новом срезе, которым владеет вызывающий.
	Forward(input []float32) ([]float32, error)
	Dim() int
	Close() error
}

// Embedder — разделяемый обработчик модели. Создаётся один раз при старте процесса
// и передаётся явно во все места, где нужны векторы.
type Embedder struct {
	backbone Backbone
	recipe   Recipe
	version  string
}

// New собирает Embedder. Версия модели включает имя рецепта: векторы с разной нормализацией несравнимы.
func New(backbone Backbone, recipe Recipe, modelVersion string) *Embedder {
	return &Embedder{
		backbone: backbone,
		recipe:   recipe,
		version:  fmt.Sprintf("%s/%s", modelVersion, recipe.Name),
	}
}

// ModelVersion возвращает идентификатор функции векторизации (модель + предобработка).
func (m *Embedder) ModelVersion() string {
	return m.version
}

func (m *Embedder) Dim() int {
	return m.backbone.Dim()
}

// Embed векторизует уже декодированное изображение. Результат детерминирован для одинаковых пикселей.
func (m *Embedder) Embed(img image.Image) (domain.EmbeddingVector, error) {
	const op = "Embedder.Embed"

	input := make([]float32, 3*InputSize*InputSize)
	if err := m.recipe.Preprocess(img, input); err != nil {
		return domain.EmbeddingVector{}, e.Wrap(op, err)
	}

	out, err := m.backbone.Forward(input)
	if err != nil {
		return domain.EmbeddingVector{}, e.Wrap(op, err)
	}

	if len(out) != m.backbone.Dim() {
		return domain.EmbeddingVector{}, e.Wrap(op, fmt.Errorf("backbone returned %d values, want %d: %w",
			len(out), m.backbone.Dim(), e.ErrDimensionMismatch))
	}

	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return domain.EmbeddingVector{}, e.Wrap(op, fmt.Errorf("index %d: %w", i, e.ErrNonFiniteEmbedding))
		}
	}

	return domain.NewEmbeddingVector(out, m.version), nil
}

// EmbedBytes проверяет формат, декодирует и векторизует изображение.
func (m *Embedder) EmbedBytes(ctx context.Context, data []byte) (domain.EmbeddingVector, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingVector{}, err
	}

	img, _, err := Decode(data)
	if err != nil {
		return domain.EmbeddingVector{}, err
	}

	return m.Embed(img)
}

// Close освобождает ресурсы backbone.
func (m *Embedder) Close() error {
	return m.backbone.Close()
}
