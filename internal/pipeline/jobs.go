package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/report"
)

// JobStatus represents the state of a report job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusBuilding   JobStatus = "building"
	StatusCharting   JobStatus = "charting"
	StatusConverting JobStatus = "converting"
	StatusInjecting  JobStatus = "injecting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Format is the output document type of a job.
type Format string

const (
	FormatHWPX Format = "hwpx"
	FormatDOCX Format = "docx"
)

// ParseFormat maps a request value to a Format. The empty string selects HWPX.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatHWPX:
		return FormatHWPX, nil
	case FormatDOCX:
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unsupported format %q (want hwpx or docx)", s)
}

// ContentType is the MIME type of documents in format f.
func (f Format) ContentType() string {
	if f == FormatDOCX {
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/hwp+zip"
}

// Job tracks the state of a single report build.
type Job struct {
	mu sync.Mutex

	ID        string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	Phase     string         `json:"phase"`
	Format    Format         `json:"format"`
	Filename  string         `json:"filename"`
	Report    report.Report  `json:"-"`
	Placement hwpx.Placement `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	attempts      int
	chartEmbedded bool
	result        []byte
	errors        []string
}

// NewJob returns a queued job for r with a random id.
func NewJob(r report.Report, format Format, placement hwpx.Placement) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Format:    format,
		Filename:  outputName(r, format),
		Report:    r,
		Placement: placement,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func outputName(r report.Report, format Format) string {
	name := r.Filename()
	return name[:len(name)-len(".md")] + "." + string(format)
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs idle for longer than the TTL and returns how many went.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for id, job := range s.jobs {
		if job.lastUpdate().Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one conversion attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts++
	j.UpdatedAt = time.Now()
}

// SetResult stores the finished document.
func (j *Job) SetResult(data []byte, chartEmbedded bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = data
	j.chartEmbedded = chartEmbedded
	j.UpdatedAt = time.Now()
}

// Result returns the finished document, or nil before completion.
func (j *Job) Result() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID            string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	Phase         string    `json:"phase"`
	Format        Format    `json:"format"`
	Filename      string    `json:"filename"`
	Attempts      int       `json:"attempts"`
	ChartEmbedded bool      `json:"chart_embedded"`
	ResultBytes   int       `json:"result_bytes"`
	Errors        []string  `json:"errors"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	return JobSnapshot{
		ID:            j.ID,
		Status:        j.Status,
		Phase:         j.Phase,
		Format:        j.Format,
		Filename:      j.Filename,
		Attempts:      j.attempts,
		ChartEmbedded: j.chartEmbedded,
		ResultBytes:   len(j.result),
		Errors:        errs,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}
