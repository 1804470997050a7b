package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/reptrack/internal/models"
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	workouts, err := h.ds.ListCompletedWorkouts(ctx, uid, 10)
	if err != nil {
		return nil, err
	}

	type workoutWithSets struct {
		models.Workout
		Sets []models.WorkoutSet `json:"sets"`
	}
	out := make([]workoutWithSets, 0, len(workouts))
	for _, w := range workouts {
		sets, err := h.ds.ListSets(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, workoutWithSets{Workout: w, Sets: sets})
	}

	return textContents(req, out)
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	return textContents(req, exercises)
}

func textContents(req mcp.ReadResourceRequest, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
