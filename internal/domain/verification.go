package domain

import "time"

// Verification описывает одну проверку изображения для аудита.
type Verification struct {
	ID             string
	QueryImage     ImageHandle
	BestMatchID    string
	BestMatchImage ImageHandle
	Score          float64
	IsMatch        bool
	Threshold      float64
	ModelVersion   string
	ReferenceCount int
	CreatedAt      time.Time
}
