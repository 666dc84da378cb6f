// Package matcher ищет ближайший эталон по косинусному сходству и принимает решение о совпадении.
package matcher

import (
	"fmt"
	"math"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/pkg/e"
)

// DefaultThreshold — порог сходства, выше которого изображение считается совпадением.
const DefaultThreshold = 0.8

// Matcher сравнивает вектор запроса с набором эталонов.
type Matcher struct {
	threshold float64
}

func NewMatcher(threshold float64) *Matcher {
	return &Matcher{threshold: threshold}
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindBestMatch возвращает индекс эталона с максимальным сходством (при равенстве — первый по порядку)
// и признак совпадения: IsMatch истинно только если сходство строго больше порога.
func (m *Matcher) FindBestMatch(query domain.EmbeddingVector, refs *domain.ReferenceSet) (domain.MatchResult, error) {
	const op = "Matcher.FindBestMatch"

	if refs == nil || refs.Len() == 0 {
		return domain.MatchResult{}, e.Wrap(op, e.ErrEmptyReferenceSet)
	}

	best := domain.MatchResult{BestIndex: -1, Score: math.Inf(-1)}
	for i := 0; i < refs.Len(); i++ {
		ref := refs.At(i).Vector
		if ref.ModelVersion != query.ModelVersion {
			return domain.MatchResult{}, e.Wrap(op, fmt.Errorf("reference %d: %q vs %q: %w",
				i, ref.ModelVersion, query.ModelVersion, e.ErrModelMismatch))
		}

		score, err := CosineSimilarity(query.Values, ref.Values)
		if err != nil {
			return domain.MatchResult{}, e.Wrap(op, fmt.Errorf("reference %d: %w", i, err))
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return domain.MatchResult{}, e.Wrap(op, fmt.Errorf("reference %d: %w", i, e.ErrNonFiniteEmbedding))
		}

		if score > best.Score {
			best.Score = score
			best.BestIndex = i
		}
	}

	best.IsMatch = best.Score > m.threshold
	return best, nil
}

// CosineSimilarity считает dot(a, b) / (|a|·|b|) в float64.
// Для вектора нулевой длины сходство равно 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%d vs %d: %w", len(a), len(b), e.ErrDimensionMismatch)
	}
	if len(a) == 0 {
		return 0, e.ErrEmptyVectors
	}

	var dot, normA, normB float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
