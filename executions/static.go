package executions

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Static answers commands from a fixed table instead of running anything.
// Every command it is asked to run is recorded in Calls.
type Static struct {
	results map[string]*Result

	mu    sync.Mutex
	Calls []Command
}

func NewStatic() *Static {
	return &Static{results: map[string]*Result{}}
}

func key(argv []string) string {
	return strings.Join(argv, "\x00")
}

// Set registers the result returned for argv.
func (s *Static) Set(res *Result, argv ...string) *Static {
	s.results[key(argv)] = res
	return s
}

// SetOutput registers a successful run of argv that printed stdout.
func (s *Static) SetOutput(stdout string, argv ...string) *Static {
	return s.Set(&Result{Stdout: []byte(stdout)}, argv...)
}

func (s *Static) Run(ctx context.Context, c Command) (*Result, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, c)
	s.mu.Unlock()

	if res, ok := s.results[key(c.Argv)]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("no canned result for %q", c.String())
}
