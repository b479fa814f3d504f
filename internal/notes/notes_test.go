package notes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/krypticgrind/cfcore/internal/cache"
)

func newTestService() (*Service, *cache.Memory) {
	mem := cache.NewMemory()
	s := NewService(mem)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("note-%d", n)
	}
	s.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return s, mem
}

func TestNoteLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	note, err := s.Add(ctx, "1896_E", "segment tree beats")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if note.ID != "note-1" || note.ProblemKey != "1896_E" {
		t.Errorf("note = %+v", note)
	}

	if _, err := s.Add(ctx, "1896_E", "second thought"); err != nil {
		t.Fatalf("Add second: %v", err)
	}
	list, err := s.ForProblem(ctx, "1896_E")
	if err != nil {
		t.Fatalf("ForProblem: %v", err)
	}
	if len(list) != 2 || list[0].Text != "segment tree beats" {
		t.Errorf("list = %+v", list)
	}

	updated, err := s.Update(ctx, "note-1", "lazy propagation instead")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Text != "lazy propagation instead" {
		t.Errorf("updated = %+v", updated)
	}

	if err := s.Delete(ctx, "note-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = s.ForProblem(ctx, "1896_E")
	if len(list) != 1 || list[0].ID != "note-2" {
		t.Errorf("after delete = %+v", list)
	}
}

func TestNoteNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	if _, err := s.Update(ctx, "ghost", "x"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("Update err = %v", err)
	}
	if err := s.Delete(ctx, "ghost"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("Delete err = %v", err)
	}
}

func TestNotesSurviveServiceRestart(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestService()
	if _, err := s.Add(ctx, "100_A", "watson-crick"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fresh := NewService(mem)
	list, err := fresh.ForProblem(ctx, "100_A")
	if err != nil {
		t.Fatalf("ForProblem: %v", err)
	}
	if len(list) != 1 || list[0].Text != "watson-crick" {
		t.Errorf("list = %+v", list)
	}
}

func TestReviewLaterOrderAndDedup(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	for _, key := range []string{"1_A", "2_B", "1_A", "3_C"} {
		if err := s.MarkReviewLater(ctx, key); err != nil {
			t.Fatalf("Mark %s: %v", key, err)
		}
	}
	keys, err := s.ReviewLater(ctx)
	if err != nil {
		t.Fatalf("ReviewLater: %v", err)
	}
	want := []string{"1_A", "2_B", "3_C"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	if ok, _ := s.IsReviewLater(ctx, "2_B"); !ok {
		t.Error("2_B not marked")
	}
	if err := s.UnmarkReviewLater(ctx, "2_B"); err != nil {
		t.Fatalf("Unmark: %v", err)
	}
	if ok, _ := s.IsReviewLater(ctx, "2_B"); ok {
		t.Error("2_B still marked")
	}
	// Unmarking an absent key is fine.
	if err := s.UnmarkReviewLater(ctx, "9_Z"); err != nil {
		t.Errorf("Unmark absent: %v", err)
	}
}

func TestSolutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	if _, err := s.Solution(ctx, "1896_E"); !errors.Is(err, ErrSolutionNotFound) {
		t.Fatalf("err = %v, want ErrSolutionNotFound", err)
	}
	if err := s.SaveSolution(ctx, "1896_E", "GNU C++20", "int main() {}"); err != nil {
		t.Fatalf("SaveSolution: %v", err)
	}
	sol, err := s.Solution(ctx, "1896_E")
	if err != nil {
		t.Fatalf("Solution: %v", err)
	}
	if sol.Language != "GNU C++20" || sol.Code != "int main() {}" {
		t.Errorf("solution = %+v", sol)
	}

	// Overwrite keeps a single solution per problem.
	if err := s.SaveSolution(ctx, "1896_E", "Python 3", "print()"); err != nil {
		t.Fatalf("SaveSolution overwrite: %v", err)
	}
	sol, _ = s.Solution(ctx, "1896_E")
	if sol.Language != "Python 3" {
		t.Errorf("overwritten solution = %+v", sol)
	}

	if err := s.DeleteSolution(ctx, "1896_E"); err != nil {
		t.Fatalf("DeleteSolution: %v", err)
	}
	if _, err := s.Solution(ctx, "1896_E"); !errors.Is(err, ErrSolutionNotFound) {
		t.Errorf("err after delete = %v", err)
	}
	if err := s.DeleteSolution(ctx, "1896_E"); err != nil {
		t.Errorf("double delete: %v", err)
	}
}
