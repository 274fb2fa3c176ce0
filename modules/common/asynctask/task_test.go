package asynctask

import "testing"

func TestTaskTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		wantErr bool
	}{
		{"normal lifecycle", []Status{StatusProcessing, StatusProcessing, StatusSucceeded}, false},
		{"immediate success", []Status{StatusSucceeded}, false},
		{"immediate failure", []Status{StatusFailed}, false},
		{"repeated processing", []Status{StatusProcessing, StatusProcessing, StatusProcessing}, false},
		{"out of succeeded", []Status{StatusSucceeded, StatusProcessing}, true},
		{"out of failed", []Status{StatusFailed, StatusSucceeded}, true},
		{"back to submitted", []Status{StatusProcessing, StatusSubmitted}, true},
		{"unknown status", []Status{Status("cancelled")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask("t-1")
			var err error
			for _, next := range tt.path {
				if err = task.Transition(next); err != nil {
					break
				}
			}
			if tt.wantErr && err == nil {
				t.Fatalf("expected transition error for path %v", tt.path)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for path %v: %v", tt.path, err)
			}
		})
	}
}

func TestTerminalTransitionToSameStateIsNoop(t *testing.T) {
	task := NewTask("t-2")
	if err := task.Transition(StatusSucceeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 같은 종료 상태 재관측은 허용 (폴링 응답 중복)
	if err := task.Transition(StatusSucceeded); err != nil {
		t.Fatalf("re-observing terminal state should be a no-op: %v", err)
	}
}

func TestApplyObservationCopiesResultFields(t *testing.T) {
	task := NewTask("t-3")

	if err := task.ApplyObservation(&Task{Status: StatusProcessing}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ResultRefs != nil {
		t.Errorf("result refs must stay empty while processing, got %v", task.ResultRefs)
	}

	refs := []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"}
	if err := task.ApplyObservation(&Task{Status: StatusSucceeded, ResultRefs: refs}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(task.ResultRefs) != 2 {
		t.Fatalf("expected 2 result refs, got %d", len(task.ResultRefs))
	}

	failed := NewTask("t-4")
	if err := failed.ApplyObservation(&Task{Status: StatusFailed, ErrorDetail: "content policy"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.ErrorDetail != "content policy" {
		t.Errorf("expected provider diagnostic to be preserved, got %q", failed.ErrorDetail)
	}
}
