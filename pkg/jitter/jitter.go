// Package jitter предоставляет экспоненциальные задержки со случайной добавкой для повторных попыток,
// чтобы фоновые задачи (очистка MinIO, переподключение к Postgres) не ходили в сервис синхронно.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Backoff описывает политику экспоненциальной задержки.
type Backoff struct {
	Base   time.Duration // задержка перед первой повторной попыткой
	Max    time.Duration // верхняя граница задержки без учёта джиттера
	Factor float64       // коэффициент джиттера, 0.5 означает до +50%
	rng    *rand.Rand
}

func NewBackoff(base, max time.Duration, factor float64) *Backoff {
	return &Backoff{Base: base, Max: max, Factor: factor}
}

// WithRand фиксирует генератор случайных чисел. Нужен для детерминированных тестов.
func (b *Backoff) WithRand(rng *rand.Rand) *Backoff {
	b.rng = rng
	return b
}

// Delay возвращает задержку для попытки attempt (нумерация с нуля).
// Результат находится в диапазоне [d, d*(1+Factor)], где d = min(Base*2^attempt, Max).
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			d = b.Max
			break
		}
	}

	return d + time.Duration(b.random()*b.Factor*float64(d))
}

// Wait ждёт Delay(attempt) или отмены контекста.
func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.Delay(attempt))
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backoff) random() float64 {
	if b.rng != nil {
		return b.rng.Float64()
	}

	randMutex.Lock()
	defer randMutex.Unlock()
	return globalRand.Float64()
}
