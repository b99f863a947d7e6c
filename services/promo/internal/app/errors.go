package app

import (
	"errors"
	"fmt"

	"bookpromo/pkg/channels"
	"bookpromo/pkg/postqueue"
)

var (
	// ErrGenerationFailed wraps any provider failure of the content façade.
	ErrGenerationFailed   = errors.New("content generation failed")
	ErrUnknownContentType = errors.New("unknown content type")
	ErrProviderMissing    = errors.New("generation provider not configured")
	// ErrPlanningFailed indicates the provider errored or returned non-JSON for a campaign.
	ErrPlanningFailed   = errors.New("campaign planning failed")
	ErrInvalidDays      = fmt.Errorf("days must be between %d and %d", MinCampaignDays, MaxCampaignDays)
	ErrNotConnected     = errors.New("channel not connected")
	ErrImageUnavailable = errors.New("image unavailable")
	ErrNoImagePrompt    = errors.New("post has no image prompt")
	ErrEmptyQuestion    = errors.New("question required")

	ErrPostNotFound      = postqueue.ErrPostNotFound
	ErrInvalidTransition = postqueue.ErrInvalidTransition
	ErrUnknownPlatform   = channels.ErrUnknownPlatform
)

// SchemaViolation reports a campaign document that does not match the
// expected array schema. Index is -1 when the document itself is wrong.
type SchemaViolation struct {
	Index  int
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	if e.Index < 0 {
		return "campaign schema violation: " + e.Reason
	}
	return fmt.Sprintf("campaign schema violation: post %d field %q: %s", e.Index, e.Field, e.Reason)
}

// Unwrap makes every schema violation a planning failure.
func (e *SchemaViolation) Unwrap() error {
	return ErrPlanningFailed
}
