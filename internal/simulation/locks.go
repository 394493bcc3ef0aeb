package simulation

import "sync"

// JobLocks hands out one mutex per job ID. The zero value is ready to use.
type JobLocks struct {
	m sync.Map
}

// Lock blocks until the job's mutex is held and returns its unlock func.
func (l *JobLocks) Lock(jobID string) (unlock func()) {
	v, _ := l.m.LoadOrStore(jobID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
