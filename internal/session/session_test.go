package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/meltforce/reptrack/internal/models"
)

// fakeStore is an in-memory Store with the same atomicity guarantees as the
// real one: batch methods apply all patches or none.
type fakeStore struct {
	templates map[int64]*models.Template
	workouts  map[int64]*models.Workout
	sets      map[int64]*models.WorkoutSet
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates: make(map[int64]*models.Template),
		workouts:  make(map[int64]*models.Workout),
		sets:      make(map[int64]*models.WorkoutSet),
		nextID:    1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) GetTemplate(_ context.Context, id int64) (*models.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "template", ID: id}
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetWorkout(_ context.Context, id int64) (*models.Workout, error) {
	w, ok := f.workouts[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "workout", ID: id}
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) GetSet(_ context.Context, id int64) (*models.WorkoutSet, error) {
	s, ok := f.sets[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "set", ID: id}
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) CreateWorkoutWithSets(_ context.Context, w *models.Workout, sets []models.WorkoutSet) (int64, error) {
	cp := *w
	cp.ID = f.id()
	f.workouts[cp.ID] = &cp
	for i := range sets {
		s := sets[i]
		s.ID = f.id()
		s.WorkoutID = cp.ID
		f.sets[s.ID] = &s
	}
	return cp.ID, nil
}

func (f *fakeStore) DeleteWorkoutCascade(_ context.Context, id int64) error {
	if _, ok := f.workouts[id]; !ok {
		return &models.NotFoundError{Resource: "workout", ID: id}
	}
	delete(f.workouts, id)
	for sid, s := range f.sets {
		if s.WorkoutID == id {
			delete(f.sets, sid)
		}
	}
	return nil
}

func (f *fakeStore) applyPatch(s *models.WorkoutSet, p models.SetPatch) {
	if p.Weight.Present {
		if p.Weight.Clear {
			s.Weight = nil
		} else {
			v := p.Weight.Value
			s.Weight = &v
		}
	}
	if p.Reps.Present {
		if p.Reps.Clear {
			s.Reps = nil
		} else {
			v := p.Reps.Value
			s.Reps = &v
		}
	}
	if p.RPE.Present {
		if p.RPE.Clear {
			s.RPE = nil
		} else {
			v := p.RPE.Value
			s.RPE = &v
		}
	}
	if p.RIR.Present {
		if p.RIR.Clear {
			s.RIR = nil
		} else {
			v := p.RIR.Value
			s.RIR = &v
		}
	}
	if p.Notes.Present {
		if p.Notes.Clear {
			s.Notes = nil
		} else {
			v := p.Notes.Value
			s.Notes = &v
		}
	}
	if p.MarkCompleted {
		s.Completed = true
	}
}

func (f *fakeStore) FinishWorkout(_ context.Context, id int64, endedAt time.Time, patches map[int64]models.SetPatch) error {
	w, ok := f.workouts[id]
	if !ok {
		return &models.NotFoundError{Resource: "workout", ID: id}
	}
	for sid, p := range patches {
		s, ok := f.sets[sid]
		if !ok {
			return &models.NotFoundError{Resource: "set", ID: sid}
		}
		f.applyPatch(s, p)
	}
	w.Completed = true
	w.EndedAt = &endedAt
	return nil
}

func (f *fakeStore) ApplyHistoryEdit(_ context.Context, id int64, patches map[int64]models.SetPatch) error {
	if _, ok := f.workouts[id]; !ok {
		return &models.NotFoundError{Resource: "workout", ID: id}
	}
	for sid, p := range patches {
		s, ok := f.sets[sid]
		if !ok {
			return &models.NotFoundError{Resource: "set", ID: sid}
		}
		f.applyPatch(s, p)
	}
	for _, s := range f.sets {
		if s.WorkoutID == id {
			s.Completed = true
		}
	}
	return nil
}

func (f *fakeStore) CreateSets(_ context.Context, sets []models.WorkoutSet) error {
	for i := range sets {
		s := sets[i]
		s.ID = f.id()
		f.sets[s.ID] = &s
	}
	return nil
}

func (f *fakeStore) UpdateSet(_ context.Context, id int64, patch models.SetPatch) error {
	s, ok := f.sets[id]
	if !ok {
		return &models.NotFoundError{Resource: "set", ID: id}
	}
	f.applyPatch(s, patch)
	return nil
}

func (f *fakeStore) DeleteSet(_ context.Context, id int64) error {
	if _, ok := f.sets[id]; !ok {
		return &models.NotFoundError{Resource: "set", ID: id}
	}
	delete(f.sets, id)
	return nil
}

func (f *fakeStore) DeleteExerciseSets(_ context.Context, workoutID, exerciseID int64) error {
	for sid, s := range f.sets {
		if s.WorkoutID == workoutID && s.ExerciseID == exerciseID {
			delete(f.sets, sid)
		}
	}
	return nil
}

func (f *fakeStore) workoutSets(workoutID int64) []*models.WorkoutSet {
	var out []*models.WorkoutSet
	for _, s := range f.sets {
		if s.WorkoutID == workoutID {
			out = append(out, s)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func setKey(id int64, field string) string {
	return fmt.Sprintf("sets[%d][%s]", id, field)
}

// setState flattens a set's mutable fields into a comparable string so tests
// can diff values rather than pointer identities.
func setState(s *models.WorkoutSet) string {
	deref := func(v any) string {
		switch p := v.(type) {
		case *float64:
			if p == nil {
				return "nil"
			}
			return fmt.Sprintf("%g", *p)
		case *int:
			if p == nil {
				return "nil"
			}
			return fmt.Sprintf("%d", *p)
		case *string:
			if p == nil {
				return "nil"
			}
			return *p
		}
		return "?"
	}
	return fmt.Sprintf("w=%s r=%s rpe=%s rir=%s n=%s c=%t",
		deref(s.Weight), deref(s.Reps), deref(s.RPE), deref(s.RIR), deref(s.Notes), s.Completed)
}

func testManager(store Store) *Manager {
	m := NewManager(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func seedTemplate(f *fakeStore, userID int64) *models.Template {
	t := &models.Template{
		ID:       f.id(),
		FolderID: 1,
		Name:     "Push Day",
		UserID:   userID,
		Lines: []models.TemplateExercise{
			{ExerciseID: 10, Sets: 3, Reps: ptr("8-12"), Weight: ptr(80.0), RPE: ptr(8.0), Position: 0},
			{ExerciseID: 11, Sets: 2, Weight: ptr(20.0), RIR: ptr(2), Position: 1},
		},
	}
	f.templates[t.ID] = t
	return t
}

func TestStartFromTemplateMaterializesSets(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)

	id, err := m.StartFromTemplate(context.Background(), tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}

	w := f.workouts[id]
	if w == nil {
		t.Fatal("workout not created")
	}
	if w.Completed {
		t.Error("new workout is completed, want active")
	}
	if w.TemplateID == nil || *w.TemplateID != tmpl.ID {
		t.Errorf("template_id = %v, want %d", w.TemplateID, tmpl.ID)
	}
	if w.Name == nil || *w.Name != "Push Day" {
		t.Errorf("name = %v, want Push Day", w.Name)
	}

	sets := f.workoutSets(id)
	if len(sets) != 5 {
		t.Fatalf("got %d sets, want 5 (3+2)", len(sets))
	}
	var line1, line2 int
	for _, s := range sets {
		if s.Completed {
			t.Errorf("set %d created completed, want planned", s.ID)
		}
		if s.Reps != nil {
			t.Errorf("set %d reps = %d, want nil (prescription is not performance)", s.ID, *s.Reps)
		}
		switch s.ExerciseID {
		case 10:
			line1++
			if s.Weight == nil || *s.Weight != 80 {
				t.Errorf("set %d weight = %v, want 80", s.ID, s.Weight)
			}
			if s.RPE == nil || *s.RPE != 8 {
				t.Errorf("set %d rpe = %v, want 8", s.ID, s.RPE)
			}
			if s.Notes == nil || *s.Notes != "target 8-12 reps" {
				t.Errorf("set %d notes = %v, want target 8-12 reps", s.ID, s.Notes)
			}
		case 11:
			line2++
			if s.RIR == nil || *s.RIR != 2 {
				t.Errorf("set %d rir = %v, want 2", s.ID, s.RIR)
			}
		default:
			t.Errorf("unexpected exercise %d", s.ExerciseID)
		}
	}
	if line1 != 3 || line2 != 2 {
		t.Errorf("set counts = %d/%d, want 3/2", line1, line2)
	}
}

func TestStartFromTemplateAccessDenied(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)

	_, err := m.StartFromTemplate(context.Background(), tmpl.ID, 2)
	var denied *models.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("error = %v, want AccessDeniedError", err)
	}
	if len(f.workouts) != 0 {
		t.Error("workout created despite denial")
	}
}

func TestFinishAppliesBatchAndCompletes(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}
	sets := f.workoutSets(id)

	form := url.Values{}
	target := sets[0]
	form.Set(setKey(target.ID, "weight"), "82.5")
	form.Set(setKey(target.ID, "reps"), "10")
	form.Set(setKey(target.ID, "rpe"), "8.5")

	if err := m.Finish(ctx, id, 1, ActionFinish, form); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	w := f.workouts[id]
	if !w.Completed {
		t.Error("workout not completed")
	}
	if w.EndedAt == nil {
		t.Error("ended_at not stamped")
	}
	got := f.sets[target.ID]
	if got.Weight == nil || *got.Weight != 82.5 {
		t.Errorf("weight = %v, want 82.5", got.Weight)
	}
	if got.Reps == nil || *got.Reps != 10 {
		t.Errorf("reps = %v, want 10", got.Reps)
	}
	if !got.Completed {
		t.Error("touched set not marked completed")
	}
	for _, s := range f.workoutSets(id) {
		if s.ID != target.ID && s.Completed {
			t.Errorf("untouched set %d marked completed", s.ID)
		}
	}
}

func TestFinishValidationAbortsWholeBatch(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}
	var benchSet, rowSet *models.WorkoutSet
	for _, s := range f.workoutSets(id) {
		switch s.ExerciseID {
		case 10:
			benchSet = s
		case 11:
			rowSet = s
		}
	}

	form := url.Values{}
	form.Set(setKey(benchSet.ID, "weight"), "90")
	form.Set(setKey(rowSet.ID, "rpe"), "15")

	err = m.Finish(ctx, id, 1, ActionFinish, form)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if verr.Field != "rpe" {
		t.Errorf("Field = %q, want rpe", verr.Field)
	}

	w := f.workouts[id]
	if w.Completed {
		t.Error("workout completed despite validation failure")
	}
	if s := f.sets[benchSet.ID]; s.Weight == nil || *s.Weight != 80 {
		t.Errorf("valid patch applied despite batch abort: weight = %v", s.Weight)
	}
}

func TestFinishSkipsStaleAndForeignSets(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}

	otherID, err := m.StartBlank(ctx, 1, "other")
	if err != nil {
		t.Fatalf("StartBlank: %v", err)
	}
	foreign := models.WorkoutSet{WorkoutID: otherID, ExerciseID: 10}
	if err := f.CreateSets(ctx, []models.WorkoutSet{foreign}); err != nil {
		t.Fatalf("CreateSets: %v", err)
	}
	var foreignID int64
	for _, s := range f.workoutSets(otherID) {
		foreignID = s.ID
	}

	form := url.Values{}
	form.Set(setKey(99999, "weight"), "100")
	form.Set(setKey(foreignID, "weight"), "100")

	if err := m.Finish(ctx, id, 1, ActionFinish, form); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if s := f.sets[foreignID]; s.Weight != nil {
		t.Errorf("foreign set mutated: weight = %v", s.Weight)
	}
	if !f.workouts[id].Completed {
		t.Error("workout not completed")
	}
}

func TestCancelDeletesWorkoutAndSets(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}

	if err := m.Finish(ctx, id, 1, ActionCancel, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := f.workouts[id]; ok {
		t.Error("workout still present after cancel")
	}
	if n := len(f.workoutSets(id)); n != 0 {
		t.Errorf("%d sets survived cancel", n)
	}

	err = m.Finish(ctx, id, 1, ActionCancel, nil)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("second cancel error = %v, want NotFoundError", err)
	}
}

func TestFinishAlreadyCompleted(t *testing.T) {
	f := newFakeStore()
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartBlank(ctx, 1, "")
	if err != nil {
		t.Fatalf("StartBlank: %v", err)
	}
	if err := m.Finish(ctx, id, 1, ActionFinish, nil); err != nil {
		t.Fatalf("first finish: %v", err)
	}

	err = m.Finish(ctx, id, 1, ActionFinish, nil)
	var done *models.AlreadyCompletedError
	if !errors.As(err, &done) {
		t.Errorf("error = %v, want AlreadyCompletedError", err)
	}
}

func TestFinishAccessDenied(t *testing.T) {
	f := newFakeStore()
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartBlank(ctx, 1, "")
	if err != nil {
		t.Fatalf("StartBlank: %v", err)
	}

	err = m.Finish(ctx, id, 2, ActionFinish, nil)
	var denied *models.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Errorf("error = %v, want AccessDeniedError", err)
	}
	if f.workouts[id].Completed {
		t.Error("workout completed despite denial")
	}
}

func TestFinishUnknownAction(t *testing.T) {
	f := newFakeStore()
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartBlank(ctx, 1, "")
	if err != nil {
		t.Fatalf("StartBlank: %v", err)
	}

	err = m.Finish(ctx, id, 1, Action("pause"), nil)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestSaveHistoryEditIdempotent(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}
	if err := m.Finish(ctx, id, 1, ActionFinish, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	sets := f.workoutSets(id)

	form := url.Values{}
	form.Set(setKey(sets[0].ID, "weight"), "95")
	form.Set(setKey(sets[0].ID, "reps"), "6")

	if err := m.SaveHistoryEdit(ctx, id, 1, form); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	snapshot := make(map[int64]string)
	for _, s := range f.workoutSets(id) {
		if !s.Completed {
			t.Errorf("set %d not completed after history edit", s.ID)
		}
		snapshot[s.ID] = setState(s)
	}

	if err := m.SaveHistoryEdit(ctx, id, 1, form); err != nil {
		t.Fatalf("second edit: %v", err)
	}
	for _, s := range f.workoutSets(id) {
		if got := setState(s); got != snapshot[s.ID] {
			t.Errorf("set %d changed on re-applied edit: %s vs %s", s.ID, got, snapshot[s.ID])
		}
	}
}

func TestUpdateSetSingle(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}
	target := f.workoutSets(id)[0]

	if err := m.UpdateSet(ctx, target.ID, 1, map[string]string{"weight": "77.5", "reps": "9"}); err != nil {
		t.Fatalf("UpdateSet: %v", err)
	}
	got := f.sets[target.ID]
	if got.Weight == nil || *got.Weight != 77.5 {
		t.Errorf("weight = %v, want 77.5", got.Weight)
	}
	if !got.Completed {
		t.Error("set not marked completed after numeric update")
	}

	if err := m.UpdateSet(ctx, target.ID, 2, map[string]string{"weight": "1"}); err == nil {
		t.Error("expected access denial for other user")
	}
}

func TestAddExerciseToCompletedWorkout(t *testing.T) {
	f := newFakeStore()
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartBlank(ctx, 1, "")
	if err != nil {
		t.Fatalf("StartBlank: %v", err)
	}
	if err := m.Finish(ctx, id, 1, ActionFinish, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if err := m.AddExercise(ctx, id, 1, 10, 2, SetDefaults{Weight: ptr(60.0)}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	sets := f.workoutSets(id)
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	for _, s := range sets {
		if !s.Completed {
			t.Errorf("set %d added to history is not completed", s.ID)
		}
		if s.Weight == nil || *s.Weight != 60 {
			t.Errorf("set %d weight = %v, want 60", s.ID, s.Weight)
		}
	}
}

func TestRemoveExercise(t *testing.T) {
	f := newFakeStore()
	tmpl := seedTemplate(f, 1)
	m := testManager(f)
	ctx := context.Background()

	id, err := m.StartFromTemplate(ctx, tmpl.ID, 1)
	if err != nil {
		t.Fatalf("StartFromTemplate: %v", err)
	}

	if err := m.RemoveExercise(ctx, id, 1, 10); err != nil {
		t.Fatalf("RemoveExercise: %v", err)
	}
	for _, s := range f.workoutSets(id) {
		if s.ExerciseID == 10 {
			t.Errorf("set %d of removed exercise survived", s.ID)
		}
	}
	if n := len(f.workoutSets(id)); n != 2 {
		t.Errorf("got %d remaining sets, want 2", n)
	}
}
