// Package converter кодирует векторы признаков для хранения в Redis.
package converter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/DRSN-tech/product-verifier/internal/domain"
)

// EncodeVector упаковывает значения вектора в little-endian float32.
func EncodeVector(v domain.EmbeddingVector) []byte {
	buf := make([]byte, 4*len(v.Values))
	for i, f := range v.Values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	return buf
}

// DecodeVector восстанавливает вектор из записи кэша. Версия модели хранится в ключе, а не в значении.
func DecodeVector(data []byte, modelVersion string) (domain.EmbeddingVector, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return domain.EmbeddingVector{}, fmt.Errorf("corrupted embedding blob of %d bytes", len(data))
	}

	values := make([]float32, len(data)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	vec := domain.NewEmbeddingVector(values, modelVersion)
	if !vec.IsFinite() {
		return domain.EmbeddingVector{}, fmt.Errorf("corrupted embedding blob: non-finite values")
	}

	return vec, nil
}
