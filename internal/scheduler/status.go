package scheduler

import (
	"time"
)

// TaskStatus is a snapshot of one task's most recent run.
type TaskStatus struct {
	Task        Task          `json:"task"`
	Running     bool          `json:"running"`
	CycleID     string        `json:"cycle_id,omitempty"`
	LastStarted time.Time     `json:"last_started"`
	LastElapsed time.Duration `json:"last_elapsed_ns"`
	LastSummary string        `json:"last_summary,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
}

// Status returns snapshots for both tasks, weekly first.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, 2)
	for _, task := range []Task{TaskWeekly, TaskFrequent} {
		snap := *s.status[task]
		snap.Running = s.running[task]
		out = append(out, snap)
	}
	return out
}

func (s *Scheduler) recordStart(task Task, cycleID string, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[task]
	st.CycleID = cycleID
	st.LastStarted = started
}

func (s *Scheduler) recordFinish(task Task, elapsed time.Duration, summary string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[task]
	st.Runs++
	st.LastElapsed = elapsed
	st.LastSummary = summary
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
}
