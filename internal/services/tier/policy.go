// Package tier evaluates batch sizes against plan limits. Decisions are
// advisory: callers decide how to surface an upgrade prompt.
package tier

import (
	"fmt"

	"github.com/phambaophuc/product-studio/internal/models"
)

const (
	FreeUploadLimit = 10
	FreeBatchLimit  = 3
)

type Policy struct {
	uploadLimit int
	batchLimit  int
}

// Decision is the outcome of a limit check. Reason is empty when Allowed.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
}

// NewPolicy builds a policy. The batch ceiling may not exceed the upload
// ceiling.
func NewPolicy(uploadLimit, batchLimit int) (Policy, error) {
	if uploadLimit <= 0 || batchLimit <= 0 {
		return Policy{}, fmt.Errorf("limits must be positive (upload=%d, batch=%d)", uploadLimit, batchLimit)
	}
	if batchLimit > uploadLimit {
		return Policy{}, fmt.Errorf("batch limit %d exceeds upload limit %d", batchLimit, uploadLimit)
	}
	return Policy{uploadLimit: uploadLimit, batchLimit: batchLimit}, nil
}

// Free returns the free plan policy.
func Free() Policy {
	return Policy{uploadLimit: FreeUploadLimit, batchLimit: FreeBatchLimit}
}

func (p Policy) UploadLimit() int { return p.uploadLimit }
func (p Policy) BatchLimit() int  { return p.batchLimit }

func (p Policy) Limits() models.PlanLimits {
	return models.PlanLimits{UploadLimit: p.uploadLimit, BatchLimit: p.batchLimit}
}

// CheckUpload decides whether count images may be accepted into intake.
func (p Policy) CheckUpload(count int) Decision {
	return check(count, p.uploadLimit,
		fmt.Sprintf("You can upload a maximum of %d images at a time.", p.uploadLimit))
}

// CheckBatch decides whether count images may go through one preset run.
func (p Policy) CheckBatch(count int) Decision {
	return check(count, p.batchLimit,
		fmt.Sprintf("You've uploaded %d images, but the batch limit on your plan is %d. Upgrade to process larger batches.", count, p.batchLimit))
}

func check(count, limit int, reason string) Decision {
	if count <= limit {
		return Decision{Allowed: true, Current: count, Limit: limit}
	}
	return Decision{Allowed: false, Reason: reason, Current: count, Limit: limit}
}
