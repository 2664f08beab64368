package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type fakeResponse struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner answers by the joined argument string
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     [][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]fakeResponse)}
}

func (f *fakeRunner) on(args string, stdout string) *fakeRunner {
	f.responses[args] = fakeResponse{stdout: stdout}
	return f
}

func (f *fakeRunner) fail(args string, stdout, stderr string) *fakeRunner {
	f.responses[args] = fakeResponse{stdout: stdout, stderr: stderr, err: errors.New("exit status 1")}
	return f
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if _, ok := ctx.Deadline(); !ok {
		return nil, nil, errors.New("no deadline on context")
	}
	r, ok := f.responses[strings.Join(args, " ")]
	if !ok {
		return nil, []byte("unexpected call"), errors.New("exit status 1")
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func (f *fakeRunner) lastArgs() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return strings.Join(f.calls[len(f.calls)-1][1:], " ")
}
