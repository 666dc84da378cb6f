package domain

import "time"

// Reference — эталонное изображение продукта и его вектор.
type Reference struct {
	ID      string
	Name    string // исходное имя файла
	Image   ImageHandle
	Vector  EmbeddingVector
	AddedAt time.Time
}

func NewReference(id string, name string, image ImageHandle, vector EmbeddingVector, addedAt time.Time) Reference {
	return Reference{
		ID:      id,
		Name:    name,
		Image:   image,
		Vector:  vector,
		AddedAt: addedAt,
	}
}

// ReferenceSet — упорядоченный набор эталонов, живущий в рамках сессии.
// Порядок добавления сохраняется, дубликаты не отбрасываются.
type ReferenceSet struct {
	items []Reference
}

func NewReferenceSet(refs ...Reference) *ReferenceSet {
	return &ReferenceSet{items: append([]Reference(nil), refs...)}
}

func (s *ReferenceSet) Append(refs ...Reference) {
	s.items = append(s.items, refs...)
}

func (s *ReferenceSet) Len() int {
	return len(s.items)
}

func (s *ReferenceSet) At(i int) Reference {
	return s.items[i]
}

// Items возвращает копию эталонов в порядке добавления.
func (s *ReferenceSet) Items() []Reference {
	return append([]Reference(nil), s.items...)
}

// Reset очищает набор и возвращает удалённые эталоны.
func (s *ReferenceSet) Reset() []Reference {
	removed := s.items
	s.items = nil
	return removed
}
