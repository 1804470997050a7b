// Package ingest defines the shared shape of bulk history imports. Format
// providers live in subpackages.
package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	WorkoutsReceived int `json:"workouts_received"`
	WorkoutsCreated  int `json:"workouts_created"`
	WorkoutsReplaced int `json:"workouts_replaced"`

	SetsReceived int `json:"sets_received"`
	SetsCreated  int `json:"sets_created"`

	// ExercisesResolved counts distinct exercises referenced by the file,
	// whether they already existed in the catalog or were created for it.
	ExercisesResolved int `json:"exercises_resolved"`

	Message string `json:"message,omitempty"`
}
