package domain

import "math"

// EmbeddingVector — вектор признаков изображения, полученный предобученной моделью.
// Вектор не изменяется после создания и сравним только с векторами той же версии модели.
type EmbeddingVector struct {
	Values       []float32
	ModelVersion string
}

func NewEmbeddingVector(values []float32, modelVersion string) EmbeddingVector {
	return EmbeddingVector{
		Values:       values,
		ModelVersion: modelVersion,
	}
}

// Dim возвращает размерность вектора.
func (v EmbeddingVector) Dim() int {
	return len(v.Values)
}

// IsFinite сообщает, что вектор не содержит NaN и бесконечностей.
func (v EmbeddingVector) IsFinite() bool {
	for _, f := range v.Values {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}
