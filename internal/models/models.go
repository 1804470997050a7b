package models

import "time"

// User is an account identified by its transport login (Tailscale login name
// in tsnet mode, "local" in dev mode).
type User struct {
	ID          int64     `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Exercise is catalog reference data, read-only after seeding.
type Exercise struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Equipment *string `json:"equipment,omitempty"`
}

// Folder groups a user's workout templates.
type Folder struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// Template is a reusable workout prescription owned via its folder.
type Template struct {
	ID       int64              `json:"id"`
	FolderID int64              `json:"folder_id"`
	Name     string             `json:"name"`
	UserID   int64              `json:"user_id"`
	Lines    []TemplateExercise `json:"lines,omitempty"`
}

// TemplateExercise is one prescribed exercise line within a template. Reps is
// a free-form string because prescriptions often encode a range ("8-12").
type TemplateExercise struct {
	ID         int64    `json:"id"`
	TemplateID int64    `json:"template_id"`
	ExerciseID int64    `json:"exercise_id"`
	Sets       int      `json:"sets"`
	Reps       *string  `json:"reps,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
	RPE        *float64 `json:"rpe,omitempty"`
	RIR        *int     `json:"rir,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	Position   int      `json:"position"`
}

// Workout is one training session. An active session has Completed false and
// no EndedAt; cancelling deletes the row outright, so "cancelled" and
// "absent" are the same state.
type Workout struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TemplateID *int64     `json:"template_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Completed  bool       `json:"completed"`
}

// WorkoutSet is one performed (or planned) set within a workout.
type WorkoutSet struct {
	ID         int64    `json:"id"`
	WorkoutID  int64    `json:"workout_id"`
	ExerciseID int64    `json:"exercise_id"`
	Weight     *float64 `json:"weight,omitempty"`
	Reps       *int     `json:"reps,omitempty"`
	RPE        *float64 `json:"rpe,omitempty"`
	RIR        *int     `json:"rir,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	Completed  bool     `json:"completed"`
}
