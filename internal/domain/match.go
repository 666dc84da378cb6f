package domain

// MatchResult описывает результат сравнения запроса с набором эталонов.
type MatchResult struct {
	IsMatch   bool
	BestIndex int
	Score     float64 // максимальное косинусное сходство
}
