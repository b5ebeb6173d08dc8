package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-console/internal/domain/model"
)

// GenerateParams describes one unit request against the remote generation
// service. Count is always 1 in practice: the orchestrator deliberately
// fragments "generate N" into N unit calls so partial progress survives any
// single-call failure.
type GenerateParams struct {
	CategoryID   string
	CategoryName string
	ContentType  model.ContentType
	Count        int
	Difficulty   string
	Model        string
}

// GenerationService is the port for the remote AI generation backend.
type GenerationService interface {
	ListModels(ctx context.Context) ([]string, error)

	// Generate returns zero or more freshly generated items. A rate-limit
	// refusal is reported as *ServiceError with StatusTooManyRequests.
	Generate(ctx context.Context, params GenerateParams) ([]*model.ContentItem, error)

	// Rewrite produces a reworded, information-preserving variant of the
	// item. Identity and non-content fields are the caller's to keep.
	Rewrite(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error)
}

const StatusTooManyRequests = 429

// ServiceError is a failure reported by the generation service. Status 429
// is the sole retryable condition; RetryAfter carries the server-suggested
// wait when the response included one.
type ServiceError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("generation service: status %d: %s", e.Status, e.Message)
}

// RateLimited reports whether the error is the retryable 429 condition.
func (e *ServiceError) RateLimited() bool { return e.Status == StatusTooManyRequests }

// AsServiceError unwraps err into a *ServiceError when possible.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
