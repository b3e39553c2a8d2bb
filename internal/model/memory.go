package model

import "sort"

// MemoryModel is an immutable in-memory Context. It is the backing for
// models loaded from pre-extracted element files and for test fixtures.
type MemoryModel struct {
	byType map[string][]Element
}

// NewMemoryModel builds a MemoryModel from a flat element list. Element
// order within each type is preserved.
func NewMemoryModel(elements ...Element) *MemoryModel {
	byType := make(map[string][]Element)
	for _, e := range elements {
		byType[e.Type] = append(byType[e.Type], e)
	}
	return &MemoryModel{byType: byType}
}

func (m *MemoryModel) ElementsByType(elementType string) []Element {
	src := m.byType[elementType]
	out := make([]Element, len(src))
	copy(out, src)
	return out
}

func (m *MemoryModel) Types() []string {
	types := make([]string, 0, len(m.byType))
	for t := range m.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
