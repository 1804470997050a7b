package models

// Field is a tri-state patch value: absent (leave the column unchanged),
// clear (write NULL), or a concrete value.
type Field[T any] struct {
	Present bool
	Clear   bool
	Value   T
}

// FieldValue returns a Field carrying v.
func FieldValue[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

// FieldClear returns a Field that clears the column to NULL.
func FieldClear[T any]() Field[T] {
	return Field[T]{Present: true, Clear: true}
}

// SetPatch is a validated set of field changes for one workout set.
// MarkCompleted flips the set's completed flag to true when applied; it is
// never used to un-complete a set.
type SetPatch struct {
	Weight Field[float64]
	Reps   Field[int]
	RPE    Field[float64]
	RIR    Field[int]
	Notes  Field[string]

	MarkCompleted bool
}

// Empty reports whether the patch changes nothing.
func (p SetPatch) Empty() bool {
	return !p.Weight.Present && !p.Reps.Present && !p.RPE.Present &&
		!p.RIR.Present && !p.Notes.Present && !p.MarkCompleted
}

// TouchesNumeric reports whether the patch sets or clears any of the numeric
// performance fields. Touching one of these is what marks a set completed.
func (p SetPatch) TouchesNumeric() bool {
	return p.Weight.Present || p.Reps.Present || p.RPE.Present || p.RIR.Present
}
