package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/script-playground/internal/apperror"
	"github.com/sakif/script-playground/internal/executor"
	"github.com/sakif/script-playground/internal/model"
	"github.com/sakif/script-playground/internal/repository"
)

// =========================================================================
// MOCKS
// =========================================================================

type mockRunRepo struct {
	runs    map[string]*model.Run
	nextID  int
	failing bool
}

func newMockRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[string]*model.Run)}
}

func (m *mockRunRepo) Create(_ context.Context, run *model.Run) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.nextID++
	run.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *run
	m.runs[run.ID] = &stored
	return nil
}

func (m *mockRunRepo) GetByID(_ context.Context, id string) (*model.Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, apperror.NotFound("run", id)
	}
	result := *run
	return &result, nil
}

func (m *mockRunRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Run, error) {
	result := make([]model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	if opts.Offset >= len(result) {
		return []model.Run{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// only returns the single stored run; tests call it after one Execute.
func (m *mockRunRepo) only(t *testing.T) *model.Run {
	t.Helper()
	if len(m.runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(m.runs))
	}
	for _, r := range m.runs {
		return r
	}
	return nil
}

// mockSandbox returns a canned result and remembers the last program.
type mockSandbox struct {
	result *executor.ExecutionResult
	err    error
	got    string
}

func (m *mockSandbox) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	m.got = req.Script
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// =========================================================================
// TEST HELPER
// =========================================================================

func newTestService(t *testing.T, sandbox *mockSandbox) (*ExecutionService, *mockRunRepo) {
	t.Helper()
	repo := newMockRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewExecutionService(sandbox, repo, logger)
	return svc, repo
}

func harnessStdout(result, printed string) string {
	return executor.ReturnValueMarker + "\n" + result + "\n" + executor.StdoutMarker + "\n" + printed + "\n"
}

// =========================================================================
// EXECUTE TESTS
// =========================================================================

func TestExecute_Success(t *testing.T) {
	sandbox := &mockSandbox{result: &executor.ExecutionResult{
		Stdout:   harnessStdout(`{"answer": 42}`, "hi"),
		Duration: 300 * time.Millisecond,
	}}
	svc, repo := newTestService(t, sandbox)

	resp, err := svc.Execute(context.Background(), "def main():\n    print('hi')\n    return {'answer': 42}")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Stdout != "hi" {
		t.Errorf("Stdout = %q, want %q", resp.Stdout, "hi")
	}
	if string(resp.Result) != `{"answer": 42}` {
		t.Errorf("Result = %s, want %s", resp.Result, `{"answer": 42}`)
	}

	if !strings.Contains(sandbox.got, "return {'answer': 42}") || !strings.Contains(sandbox.got, executor.ReturnValueMarker) {
		t.Error("sandbox did not receive the wrapped script")
	}

	run := repo.only(t)
	if run.Status != model.RunSucceeded {
		t.Errorf("recorded status = %q, want %q", run.Status, model.RunSucceeded)
	}
	if run.Duration != 300*time.Millisecond {
		t.Errorf("recorded duration = %s, want 300ms", run.Duration)
	}
	if run.ScriptDigest == "" || run.ScriptBytes == 0 {
		t.Error("recorded run is missing script metadata")
	}
}

func TestExecute_ScriptFailures(t *testing.T) {
	tests := []struct {
		name       string
		result     *executor.ExecutionResult
		wantMsg    string
		wantOutput string
		wantStatus model.RunStatus
	}{
		{
			name:       "non-zero exit reports stderr",
			result:     &executor.ExecutionResult{Stdout: "partial", Stderr: "  Error: No main() function found in the script\n", ExitCode: 1},
			wantMsg:    "Error: No main() function found in the script",
			wantOutput: "partial",
			wantStatus: model.RunFailed,
		},
		{
			name:       "non-zero exit without stderr",
			result:     &executor.ExecutionResult{ExitCode: 137},
			wantMsg:    "Execution failed with exit code 137",
			wantStatus: model.RunFailed,
		},
		{
			name:       "timeout drops stdout",
			result:     &executor.ExecutionResult{Stdout: "tick", Stderr: "\nExecution timed out.\n", ExitCode: executor.TimeoutExitCode},
			wantMsg:    TimeoutMessage,
			wantStatus: model.RunTimedOut,
		},
		{
			name:       "missing markers",
			result:     &executor.ExecutionResult{Stdout: "just text"},
			wantMsg:    "Invalid script output format",
			wantOutput: "just text",
			wantStatus: model.RunFailed,
		},
		{
			name:       "scalar result",
			result:     &executor.ExecutionResult{Stdout: harnessStdout("5", "")},
			wantMsg:    "Server validation failed: Result must be a JSON object (dict) or array (list), received: int",
			wantStatus: model.RunFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t, &mockSandbox{result: tt.result})

			_, err := svc.Execute(context.Background(), "def main(): pass")
			if !errors.Is(err, apperror.ErrScript) {
				t.Fatalf("error = %v, want ErrScript", err)
			}

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("error %T is not an AppError", err)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.wantMsg)
			}
			if appErr.Output != tt.wantOutput {
				t.Errorf("Output = %q, want %q", appErr.Output, tt.wantOutput)
			}

			if got := repo.only(t).Status; got != tt.wantStatus {
				t.Errorf("recorded status = %q, want %q", got, tt.wantStatus)
			}
		})
	}
}

func TestExecute_SandboxError(t *testing.T) {
	svc, repo := newTestService(t, &mockSandbox{err: errors.New("daemon unreachable")})

	_, err := svc.Execute(context.Background(), "def main(): return {}")
	if err == nil {
		t.Fatal("Execute() should error when the sandbox fails")
	}
	if errors.Is(err, apperror.ErrScript) || errors.Is(err, apperror.ErrValidation) {
		t.Errorf("sandbox failure classified as client error: %v", err)
	}
	if !strings.Contains(err.Error(), "daemon unreachable") {
		t.Errorf("error = %v, want the sandbox cause", err)
	}

	run := repo.only(t)
	if run.Status != model.RunErrored {
		t.Errorf("recorded status = %q, want %q", run.Status, model.RunErrored)
	}
}

func TestExecute_ScriptTooLong(t *testing.T) {
	sandbox := &mockSandbox{result: &executor.ExecutionResult{}}
	svc, repo := newTestService(t, sandbox)

	_, err := svc.Execute(context.Background(), strings.Repeat("a", MaxScriptLength+1))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if sandbox.got != "" {
		t.Error("oversized script reached the sandbox")
	}
	if len(repo.runs) != 0 {
		t.Errorf("recorded %d runs for a rejected script, want 0", len(repo.runs))
	}
}

func TestExecute_RecordFailureIsNotFatal(t *testing.T) {
	svc, repo := newTestService(t, &mockSandbox{result: &executor.ExecutionResult{
		Stdout: harnessStdout("[]", ""),
	}})
	repo.failing = true

	resp, err := svc.Execute(context.Background(), "def main(): return []")
	if err != nil {
		t.Fatalf("Execute() error = %v, want success despite the run log failing", err)
	}
	if string(resp.Result) != "[]" {
		t.Errorf("Result = %s, want []", resp.Result)
	}
}

func TestExecute_SameScriptSameDigest(t *testing.T) {
	sandbox := &mockSandbox{result: &executor.ExecutionResult{Stdout: harnessStdout("{}", "")}}
	svc, repo := newTestService(t, sandbox)

	for i := 0; i < 2; i++ {
		if _, err := svc.Execute(context.Background(), "def main(): return {}"); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	if repo.runs["mock-1"].ScriptDigest != repo.runs["mock-2"].ScriptDigest {
		t.Error("identical scripts recorded with different digests")
	}
}

// =========================================================================
// RUN LOG TESTS
// =========================================================================

func TestListRuns_FilterAndClamp(t *testing.T) {
	svc, repo := newTestService(t, &mockSandbox{})
	for _, st := range []model.RunStatus{model.RunSucceeded, model.RunFailed, model.RunFailed} {
		_ = repo.Create(context.Background(), &model.Run{Status: st})
	}

	runs, err := svc.ListRuns(context.Background(), -5, -10, "failed")
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("ListRuns() returned %d runs, want 2", len(runs))
	}

	all, err := svc.ListRuns(context.Background(), 1000, 0, "")
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns() returned %d runs, want 3", len(all))
	}
}

func TestListRuns_UnknownStatus(t *testing.T) {
	svc, _ := newTestService(t, &mockSandbox{})

	_, err := svc.ListRuns(context.Background(), 0, 0, "exploded")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestGetRun(t *testing.T) {
	svc, repo := newTestService(t, &mockSandbox{})
	created := &model.Run{Status: model.RunSucceeded}
	_ = repo.Create(context.Background(), created)

	found, err := svc.GetRun(context.Background(), "  "+created.ID+"  ")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	if _, err := svc.GetRun(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty id: error = %v, want ErrValidation", err)
	}
	if _, err := svc.GetRun(context.Background(), "nonexistent"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing id: error = %v, want ErrNotFound", err)
	}
}
