package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
)

// BatchStatus is the state of a queued job.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// EventBatchUpdated is published whenever a batch job changes state.
const EventBatchUpdated EventType = "batch_updated"

// SettingsOverrides replace individual job settings when set.
type SettingsOverrides struct {
	AspectRatio    *string          `json:"aspectRatio,omitempty"`
	NumberOfImages *int             `json:"numberOfImages,omitempty"`
	Model          *core.ImageModel `json:"model,omitempty"`
}

// BatchJob is one queued prompt.
type BatchJob struct {
	ID          string                  `json:"id"`
	Prompt      string                  `json:"prompt"`
	Vehicle     core.VehicleType        `json:"vehicle,omitempty"`
	Model       core.ImageModel         `json:"model"`
	Settings    core.GenerationSettings `json:"settings"`
	Overrides   *SettingsOverrides      `json:"overrides,omitempty"`
	Status      BatchStatus             `json:"status"`
	CreatedAt   int64                   `json:"createdAt"`
	CompletedAt int64                   `json:"completedAt,omitempty"`
	Result      []core.HistoryRecord    `json:"result,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Note        string                  `json:"note,omitempty"`
}

// ResolveJobSettings applies job.Overrides over job.Settings. The model
// falls back to job.Model when neither names one.
func ResolveJobSettings(job BatchJob) core.GenerationSettings {
	s := job.Settings
	if s.Model == "" {
		s.Model = job.Model
	}
	if o := job.Overrides; o != nil {
		if o.AspectRatio != nil {
			s.AspectRatio = *o.AspectRatio
		}
		if o.NumberOfImages != nil {
			s.NumberOfImages = *o.NumberOfImages
		}
		if o.Model != nil {
			s.Model = *o.Model
		}
	}
	return s
}

// ReorderJobs moves the job sourceID to the position of targetID. The input
// is returned unchanged when either id is unknown or both are equal.
func ReorderJobs(jobs []BatchJob, sourceID, targetID string) []BatchJob {
	src, dst := -1, -1
	for i, j := range jobs {
		if j.ID == sourceID {
			src = i
		}
		if j.ID == targetID {
			dst = i
		}
	}
	if src == -1 || dst == -1 || src == dst {
		return jobs
	}

	next := make([]BatchJob, 0, len(jobs))
	next = append(next, jobs[:src]...)
	next = append(next, jobs[src+1:]...)
	moved := jobs[src]
	next = append(next[:dst], append([]BatchJob{moved}, next[dst:]...)...)
	return next
}

// NewBatchJob fills id, status and creation time.
func NewBatchJob(prompt string, vehicle core.VehicleType, settings core.GenerationSettings) BatchJob {
	return BatchJob{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Vehicle:   vehicle,
		Model:     settings.Model,
		Settings:  settings,
		Status:    BatchPending,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Generator runs a single generation request.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// BatchRunner feeds jobs through a Generator one at a time.
type BatchRunner struct {
	generator Generator
	bus       *Bus
	logger    *logging.Logger
	now       func() time.Time
}

// NewBatchRunner creates a runner. bus may be nil.
func NewBatchRunner(generator Generator, bus *Bus, logger *logging.Logger) (*BatchRunner, error) {
	if generator == nil {
		return nil, fmt.Errorf("studio: generator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("studio: logger cannot be nil")
	}
	return &BatchRunner{
		generator: generator,
		bus:       bus,
		logger:    logger.Named("batch"),
		now:       time.Now,
	}, nil
}

// Run processes every pending job in order and returns the updated list.
// Jobs that are not pending are passed through. A busy orchestrator fails
// the job rather than waiting. Cancelling ctx leaves the remaining jobs
// pending.
func (r *BatchRunner) Run(ctx context.Context, jobs []BatchJob) []BatchJob {
	out := append([]BatchJob(nil), jobs...)
	for i := range out {
		if out[i].Status != BatchPending {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		job := &out[i]
		job.Status = BatchProcessing
		r.publish(*job)

		settings := ResolveJobSettings(*job)
		res, err := r.generator.Generate(ctx, GenerationRequest{
			Prompt:      job.Prompt,
			Model:       settings.Model,
			AspectRatio: settings.AspectRatio,
			ImageCount:  settings.NumberOfImages,
			Vehicle:     job.Vehicle,
		})

		job.CompletedAt = r.now().UnixMilli()
		if err != nil {
			job.Status = BatchFailed
			job.Error = err.Error()
			if errors.Is(err, ErrBusy) {
				job.Note = "skipped: another generation was running"
			}
			r.logger.Warn("batch job failed", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			job.Status = BatchCompleted
			job.Result = res.Records
			if res.Warning != nil {
				job.Note = res.Warning.Error()
			}
		}
		r.publish(*job)
	}
	return out
}

func (r *BatchRunner) publish(job BatchJob) {
	if r.bus != nil {
		r.bus.Publish(Event{Type: EventBatchUpdated, Timestamp: r.now(), Data: job})
	}
}
