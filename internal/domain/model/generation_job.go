package model

import (
	"fmt"
	"time"
)

type GenerationJobStatus string

const (
	GenerationJobRunning  GenerationJobStatus = "running"
	GenerationJobFinished GenerationJobStatus = "finished"
)

// GenerationRequest asks the remote service for items in one category.
// Count is 1..50; an unknown CategoryID is a precondition failure upstream,
// never retried here.
type GenerationRequest struct {
	CategoryID string
	Count      int
	Difficulty string
	Model      string
}

// CategoryOutcome records how one category fared within a batch.
// Success is true iff at least one item was produced.
type CategoryOutcome struct {
	CategoryID string
	Name       string
	Success    bool
	Produced   int
	LastError  string
}

// Progress is the fine-grained state of a running batch. All counters are
// monotonically non-decreasing within one job and reset only by a new job.
type Progress struct {
	TotalCategories int
	Completed       int
	CurrentCategory string
	ItemsDone       int
	ItemsRequested  int
}

// GenerationJob is the aggregate for one batch launch. It is mutated
// exclusively by the orchestrator and never raises: the outcome list
// describes what succeeded and what failed.
type GenerationJob struct {
	ID        string
	Status    GenerationJobStatus
	Requests  []GenerationRequest
	Progress  Progress
	Results   []*ContentItem
	Outcomes  []CategoryOutcome
	StartedAt time.Time
	EndedAt   time.Time
}

func NewGenerationJob(id string, requests []GenerationRequest) *GenerationJob {
	return &GenerationJob{
		ID:       id,
		Status:   GenerationJobRunning,
		Requests: requests,
		Progress: Progress{TotalCategories: len(requests)},
		Results:  make([]*ContentItem, 0, len(requests)),
		Outcomes: make([]CategoryOutcome, 0, len(requests)),
	}
}

// BeginCategory points Progress at the next category and resets the
// per-category item counters.
func (j *GenerationJob) BeginCategory(name string, requested int) {
	j.Progress.CurrentCategory = name
	j.Progress.ItemsDone = 0
	j.Progress.ItemsRequested = requested
}

func (j *GenerationJob) ItemDone(item *ContentItem) {
	j.Results = append(j.Results, item)
	j.Progress.ItemsDone++
}

func (j *GenerationJob) FinishCategory(outcome CategoryOutcome) {
	j.Outcomes = append(j.Outcomes, outcome)
	j.Progress.Completed++
}

// FailedCategories counts outcomes that produced zero items.
func (j *GenerationJob) FailedCategories() int {
	n := 0
	for _, o := range j.Outcomes {
		if !o.Success {
			n++
		}
	}
	return n
}

// Summary is the operator-facing one-liner, produced even when every
// category failed.
func (j *GenerationJob) Summary() string {
	return fmt.Sprintf("generated %d items across %d categories, %d failed",
		len(j.Results), len(j.Outcomes), j.FailedCategories())
}
