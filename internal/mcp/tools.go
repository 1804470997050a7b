package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/reptrack/internal/models"
)

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise catalog. Returns name, muscle-group category, and equipment for every exercise."),
	mcp.WithString("category", mcp.Description("Filter by muscle-group category (e.g. 'Chest', 'Back', 'Quadriceps')")),
)

var toolGetRecentWorkouts = mcp.NewTool("get_recent_workouts",
	mcp.WithDescription("List recent completed workouts, newest first. Returns name, start/end times, and notes."),
	mcp.WithNumber("limit", mcp.Description("Maximum workouts to return. Defaults to 10.")),
)

var toolGetWorkoutSets = mcp.NewTool("get_workout_sets",
	mcp.WithDescription("Get every set of one workout: exercise, weight, reps, RPE, RIR, and notes in performed order."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolGetStrengthSeries = mcp.NewTool("get_strength_series",
	mcp.WithDescription("Per-exercise strength progression: one estimated one-rep max (Epley, RPE-adjusted) per completed workout."),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench press')")),
)

var toolGetLastPerformance = mcp.NewTool("get_last_performance",
	mcp.WithDescription("What the user did the last time they trained an exercise: the most recent completed workout containing it, with every completed set and its estimated one-rep max."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (partial match)")),
)

var toolGetTrainingCounts = mcp.NewTool("get_training_counts",
	mcp.WithDescription("Completed-workout counts: total and within a trailing window."),
	mcp.WithNumber("days", mcp.Description("Trailing window in days. Defaults to 7.")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}

	if category := req.GetString("category", ""); category != "" {
		filtered := exercises[:0]
		for _, e := range exercises {
			if strings.EqualFold(e.Category, category) {
				filtered = append(filtered, e)
			}
		}
		exercises = filtered
	}

	return jsonResult(exercises)
}

func (h *handlers) getRecentWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	limit := req.GetInt("limit", 10)
	if limit < 1 {
		limit = 10
	}

	workouts, err := h.ds.ListCompletedWorkouts(ctx, uid, limit)
	if err != nil {
		return nil, err
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkoutSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	workoutID, err := req.RequireInt("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	w, err := h.ds.GetWorkout(ctx, int64(workoutID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if w.UserID != uid {
		return mcp.NewToolResultError("workout belongs to a different user"), nil
	}

	sets, err := h.ds.ListSets(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"workout": w, "sets": sets})
}

func (h *handlers) getStrengthSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	series, err := h.stats.Series(ctx, uid)
	if err != nil {
		return nil, err
	}

	if filter := req.GetString("exercise", ""); filter != "" {
		needle := strings.ToLower(filter)
		for name := range series {
			if !strings.Contains(strings.ToLower(name), needle) {
				delete(series, name)
			}
		}
	}

	return jsonResult(series)
}

func (h *handlers) getLastPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	name, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	exercise, err := h.findExercise(ctx, uid, name)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return mcp.NewToolResultError("no exercise matching " + name), nil
	}

	lp, err := h.stats.Lookback(ctx, uid, exercise.ID, 0)
	if err != nil {
		return nil, err
	}
	if lp == nil {
		return jsonResult(map[string]any{"exercise": exercise, "previous": nil})
	}
	return jsonResult(map[string]any{"exercise": exercise, "previous": lp})
}

func (h *handlers) getTrainingCounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	days := req.GetInt("days", 7)
	if days < 1 {
		days = 7
	}

	total, err := h.ds.CountCompletedWorkouts(ctx, uid, nil)
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -days)
	window, err := h.ds.CountCompletedWorkouts(ctx, uid, &since)
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]any{
		"total":       total,
		"window_days": days,
		"in_window":   window,
	})
}

// findExercise matches a name against the exercises the user has actually
// performed first, then against the whole catalog. Exact match wins over
// partial.
func (h *handlers) findExercise(ctx context.Context, userID int64, name string) (*models.Exercise, error) {
	performed, err := h.ds.ListDistinctExercisesPerformed(ctx, userID)
	if err != nil {
		return nil, err
	}
	if e := matchExercise(performed, name); e != nil {
		return e, nil
	}

	catalog, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	return matchExercise(catalog, name), nil
}

func matchExercise(exercises []models.Exercise, name string) *models.Exercise {
	needle := strings.ToLower(strings.TrimSpace(name))
	var partial *models.Exercise
	for i := range exercises {
		candidate := strings.ToLower(exercises[i].Name)
		if candidate == needle {
			return &exercises[i]
		}
		if partial == nil && strings.Contains(candidate, needle) {
			partial = &exercises[i]
		}
	}
	return partial
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
