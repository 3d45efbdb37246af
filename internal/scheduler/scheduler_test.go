package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestScheduler_RegisterTask_Validation(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name    string
		config  TaskConfig
		wantErr bool
	}{
		{"interval", TaskConfig{ID: "a", Interval: time.Minute, Func: noop}, false},
		{"cron", TaskConfig{ID: "b", Cron: "0 2 * * *", Func: noop}, false},
		{"duplicate", TaskConfig{ID: "a", Interval: time.Minute, Func: noop}, true},
		{"both", TaskConfig{ID: "c", Cron: "0 2 * * *", Interval: time.Minute, Func: noop}, true},
		{"neither", TaskConfig{ID: "d", Func: noop}, true},
		{"no func", TaskConfig{ID: "e", Interval: time.Minute}, true},
		{"no id", TaskConfig{Interval: time.Minute, Func: noop}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.RegisterTask(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("RegisterTask() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	tasks := s.ListTasks()
	if len(tasks) != 2 || tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Errorf("ListTasks() = %+v", tasks)
	}
	for _, task := range tasks {
		if task.Name != task.ID {
			t.Errorf("task %q Name = %q, want the id", task.ID, task.Name)
		}
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(t)

	done := make(chan struct{})
	err := s.RegisterTask(TaskConfig{
		ID:       "once",
		Interval: time.Hour,
		Func: func(ctx context.Context) error {
			close(done)
			return errors.New("logged, not returned")
		},
	})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}

	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow(missing) should fail")
	}
	if err := s.RunNow("once"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, err := s.GetTask("once")
		if err != nil {
			t.Fatalf("GetTask() error = %v", err)
		}
		if info.LastRun != nil && !info.Running {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("task state not updated after run")
}

func TestScheduler_PanicIsContained(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.RegisterTask(TaskConfig{
		ID:       "panics",
		Interval: time.Hour,
		Func:     func(context.Context) error { panic("boom") },
	}); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}

	s.executeTask("panics")

	info, _ := s.GetTask("panics")
	if info.Running || info.LastRun == nil {
		t.Errorf("unexpected state after panic: %+v", info)
	}
}

func TestScheduler_StopCancelsContext(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var seen context.Context
	if err := s.RegisterTask(TaskConfig{
		ID:       "ctx",
		Interval: time.Hour,
		Func: func(ctx context.Context) error {
			seen = ctx
			return nil
		},
	}); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	s.executeTask("ctx")

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if seen == nil || seen.Err() == nil {
		t.Error("task context not cancelled by Stop")
	}
}
