package models

// Complexity represents the ordered complexity bucket of a task.
type Complexity string

const (
	// ComplexityTrivial is work with no unknowns.
	ComplexityTrivial Complexity = "trivial"
	// ComplexitySimple is straightforward work.
	ComplexitySimple Complexity = "simple"
	// ComplexityMedium is typical work.
	ComplexityMedium Complexity = "medium"
	// ComplexityComplex is work with significant unknowns.
	ComplexityComplex Complexity = "complex"
	// ComplexityVeryComplex is the largest bucket.
	ComplexityVeryComplex Complexity = "very_complex"
)

var complexityOrder = map[Complexity]int{
	ComplexityTrivial:     0,
	ComplexitySimple:      1,
	ComplexityMedium:      2,
	ComplexityComplex:     3,
	ComplexityVeryComplex: 4,
}

// Complexities returns all complexity buckets in ascending order.
func Complexities() []Complexity {
	return []Complexity{ComplexityTrivial, ComplexitySimple, ComplexityMedium, ComplexityComplex, ComplexityVeryComplex}
}

// Valid returns true if the complexity is a known value.
func (c Complexity) Valid() bool {
	_, ok := complexityOrder[c]
	return ok
}

// Ordinal returns the position of the bucket in the ordered scale,
// or -1 for unknown values.
func (c Complexity) Ordinal() int {
	if n, ok := complexityOrder[c]; ok {
		return n
	}
	return -1
}

// StepLower returns the bucket one step below c, or trivial if c is
// already at the bottom or unknown.
func (c Complexity) StepLower() Complexity {
	n := c.Ordinal()
	if n <= 0 {
		return ComplexityTrivial
	}
	return ComplexityFromOrdinal(n - 1)
}

// ComplexityFromOrdinal returns the bucket at the given position,
// clamping out-of-range values to the nearest end of the scale.
func ComplexityFromOrdinal(n int) Complexity {
	all := Complexities()
	if n < 0 {
		return all[0]
	}
	if n >= len(all) {
		return all[len(all)-1]
	}
	return all[n]
}
