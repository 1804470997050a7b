// Package catalog seeds the built-in exercise catalog. Seeding is idempotent
// and runs on every startup; user-created entries are never touched.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/reptrack/internal/models"
)

// Seeder is the slice of the storage layer the catalog needs.
type Seeder interface {
	SeedExercises(ctx context.Context, exercises []models.Exercise) (int64, error)
}

// Seed inserts any missing default exercises.
func Seed(ctx context.Context, store Seeder, log *slog.Logger) error {
	created, err := store.SeedExercises(ctx, Defaults())
	if err != nil {
		return fmt.Errorf("seeding exercise catalog: %w", err)
	}
	if created > 0 {
		log.Info("exercise catalog seeded", "created", created)
	}
	return nil
}

// Defaults returns the built-in exercise catalog. An exercise may appear
// under more than one category (Squat trains both quadriceps and glutes);
// the name plus category pair is what is unique.
func Defaults() []models.Exercise {
	out := make([]models.Exercise, 0, len(defaults))
	for _, d := range defaults {
		eq := d.equipment
		out = append(out, models.Exercise{Name: d.name, Category: d.category, Equipment: &eq})
	}
	return out
}

var defaults = []struct {
	name      string
	category  string
	equipment string
}{
	{"Bench Press", "Chest", "Barbell"},
	{"Incline Dumbbell Press", "Chest", "Dumbbell"},
	{"Dips", "Chest", "Bodyweight"},
	{"Standing Cable Chest Fly", "Chest", "Cable"},
	{"Assisted Dip", "Chest", "Assisted"},
	{"Band-Assisted Bench Press", "Chest", "Band"},
	{"Cable Crossover", "Chest", "Cable"},
	{"Close-Grip Bench Press", "Chest", "Barbell"},
	{"Decline Bench Press", "Chest", "Barbell"},
	{"Dumbbell Chest Fly", "Chest", "Dumbbell"},
	{"Push-Up", "Chest", "Bodyweight"},
	{"Ring Dip", "Chest", "Rings"},
	{"Smith Machine Bench Press", "Chest", "Smith Machine"},
	{"Incline Push-Up", "Chest", "Bodyweight"},
	{"Dumbbell Pullover", "Chest", "Dumbbell"},

	{"Overhead Press", "Shoulders", "Barbell"},
	{"Seated Dumbbell Shoulder Press", "Shoulders", "Dumbbell"},
	{"Dumbbell Lateral Raise", "Shoulders", "Dumbbell"},
	{"Reverse Dumbbell Fly", "Shoulders", "Dumbbell"},
	{"Reverse Machine Fly", "Shoulders", "Machine"},
	{"Arnold Press", "Shoulders", "Dumbbell"},
	{"Band Pull-Apart", "Shoulders", "Band"},
	{"Cable Lateral Raise", "Shoulders", "Cable"},
	{"Face Pull", "Shoulders", "Cable"},
	{"Landmine Press", "Shoulders", "Landmine"},
	{"Machine Shoulder Press", "Shoulders", "Machine"},

	{"Deadlift", "Back", "Barbell"},
	{"Lat Pulldown", "Back", "Cable"},
	{"Pull-Up", "Back", "Bodyweight"},
	{"Barbell Row", "Back", "Barbell"},
	{"Dumbbell Row", "Back", "Dumbbell"},
	{"Seal Row", "Back", "Barbell"},
	{"T-Bar Row", "Back", "T-Bar"},
	{"Meadows row", "Back", "T-Bar"},
	{"Back Extensions", "Back", "Barbell/Dumbbell/Plate"},
	{"Inverted Row", "Back", "Bodyweight"},
	{"Trap Bar Deadlift", "Back", "Trap Bar"},
	{"Cable Seated Row", "Back", "Cable"},
	{"Straight Arm Lat Pulldown", "Back", "Cable"},
	{"Machine Row", "Back", "Machine"},

	{"Barbell Curl", "Biceps", "Barbell"},
	{"Dumbbell Curl", "Biceps", "Dumbbell"},
	{"Hammer Curl", "Biceps", "Dumbbell"},
	{"Incline Dumbbell Curl", "Biceps", "Dumbbell"},
	{"Concentration Curl", "Biceps", "Dumbbell"},
	{"Cable Curl", "Biceps", "Cable"},
	{"Spider Curl", "Biceps", "Dumbbell"},
	{"Preacher Curl", "Biceps", "Barbell/Dumbbell"},

	{"Barbell Lying Triceps Extension", "Triceps", "Barbell"},
	{"Overhead Cable Triceps Extension", "Triceps", "Cable"},
	{"Tricep Pushdown", "Triceps", "Cable"},
	{"Dips", "Triceps", "Bodyweight"},
	{"Close-Grip Bench Press", "Triceps", "Barbell"},
	{"Dumbbell Skull Crusher", "Triceps", "Dumbbell"},
	{"Barbell Skull Crusher", "Triceps", "Barbell"},
	{"Tricep Kickback", "Triceps", "Dumbbell"},
	{"Bench Dip", "Triceps", "Bodyweight"},

	{"Squat", "Quadriceps", "Barbell"},
	{"Hack Squats", "Quadriceps", "Machine"},
	{"Leg Extension", "Quadriceps", "Machine"},
	{"Bulgarian Split Squat", "Quadriceps", "Dumbbell"},
	{"Front Squat", "Quadriceps", "Barbell"},
	{"Goblet Squat", "Quadriceps", "Dumbbell"},
	{"Smith Machine Squat", "Quadriceps", "Smith Machine"},

	{"Seated Leg Curl", "Hamstrings", "Machine"},
	{"Lying Leg Curl", "Hamstrings", "Machine"},
	{"Romanian Deadlift", "Hamstrings", "Barbell"},
	{"Nordic Hamstring Curl", "Hamstrings", "Bodyweight"},
	{"Good Morning", "Hamstrings", "Barbell"},
	{"Stiff Leg Deadlift", "Hamstrings", "Barbell"},

	{"Squat", "Glutes", "Barbell"},
	{"Lunges", "Glutes", "Barbell/Dumbbell"},
	{"Hip Thrust", "Glutes", "Barbell"},
	{"Romanian Deadlift", "Glutes", "Barbell"},
	{"Bulgarian Split Squat", "Glutes", "Dumbbell"},
	{"Glute Bridge", "Glutes", "Bodyweight"},
	{"Cable Pull Through", "Glutes", "Cable"},
	{"Reverse Hyperextension", "Glutes", "Machine"},

	{"Cable Crunch", "Abs", "Cable"},
	{"Machine Crunch", "Abs", "Machine"},
	{"Decline Sit Ups", "Abs", "Bodyweight"},
	{"Hanging Leg Raise", "Abs", "Bodyweight"},
	{"High to Low Wood Chop", "Abs", "Cable"},
	{"Crunch", "Abs", "Bodyweight"},
	{"Sit Ups", "Abs", "Bodyweight"},
	{"Leg Raise", "Abs", "Bodyweight"},
	{"Plank", "Abs", "Bodyweight"},
	{"Side Plank", "Abs", "Bodyweight"},
	{"Russian Twist", "Abs", "Bodyweight"},
	{"Mountain Climbers", "Abs", "Bodyweight"},

	{"Standing Calf Raise", "Calves", "Machine"},
	{"Seated Calf Raise", "Calves", "Machine"},
	{"Donkey Calf Raise", "Calves", "Machine"},
	{"Barbell Calf Raise", "Calves", "Barbell"},

	{"Farmers Walk", "Forearms", "Dumbbell/Kettlebell"},
	{"Bar Hang", "Forearms", "Bodyweight"},
	{"Gripper", "Forearms", "Hand Gripper"},
	{"Plate Pinch", "Forearms", "Plate"},
	{"Wrist Roller", "Forearms", "Wrist Roller"},
	{"Wrist Curls", "Forearms", "Barbell/Dumbbell"},
	{"Barbell Wrist Extension", "Forearms", "Barbell"},
	{"Dumbbell Wrist Extension", "Forearms", "Dumbbell"},
}
