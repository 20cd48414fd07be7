package app

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/evanschultz/kanban/internal/domain"
)

func TestProjectPartitionCompleteness(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	lanes := domain.Lanes()
	for round := 0; round < 50; round++ {
		n := rng.IntN(40)
		tasks := make([]domain.Task, 0, n)
		for i := 0; i < n; i++ {
			tasks = append(tasks, domain.Task{
				ID:     int64(i + 1),
				Title:  fmt.Sprintf("task %d", i),
				Status: lanes[rng.IntN(len(lanes))],
			})
		}
		proj := Project(tasks)
		if proj.Len() != len(tasks) {
			t.Fatalf("round %d: projected %d tasks, want %d", round, proj.Len(), len(tasks))
		}
		seen := map[int64]int{}
		for idx, lane := range proj.Lanes() {
			for _, task := range lane {
				if task.Status != lanes[idx] {
					t.Fatalf("round %d: task %d in lane %q has status %q", round, task.ID, lanes[idx], task.Status)
				}
				seen[task.ID]++
			}
		}
		for _, task := range tasks {
			if seen[task.ID] != 1 {
				t.Fatalf("round %d: task %d assigned %d times", round, task.ID, seen[task.ID])
			}
		}
	}
}

func TestProjectPreservesOrderWithinLane(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, Status: domain.StatusDoing},
		{ID: 2, Status: domain.StatusTodo},
		{ID: 3, Status: domain.StatusDoing},
		{ID: 4, Status: domain.StatusTodo},
	}
	proj := Project(tasks)
	if got := ids(proj.Todo); fmt.Sprint(got) != "[2 4]" {
		t.Fatalf("todo order = %v", got)
	}
	if got := ids(proj.Lane(domain.StatusDoing)); fmt.Sprint(got) != "[1 3]" {
		t.Fatalf("doing order = %v", got)
	}
	if proj.Done == nil || len(proj.Done) != 0 {
		t.Fatalf("expected empty done lane, got %#v", proj.Done)
	}
	if proj.Lane(domain.Status("x")) != nil {
		t.Fatal("expected nil lane for unknown status")
	}
}

func TestProjectPanicsOnInvalidStatus(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid status")
		}
	}()
	Project([]domain.Task{{ID: 1, Status: domain.Status("archived")}})
}

func ids(tasks []domain.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}
