package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-vision-predictor/internal/domain"
)

// Event represents the prediction outcome published downstream.
type Event struct {
	ProjectID   string                  `json:"project_id"`
	IterationID string                  `json:"iteration_id"`
	ImageURL    string                  `json:"image_url"`
	StatusCode  int                     `json:"status_code"`
	Result      domain.PredictionResult `json:"result"`
	PredictedAt time.Time               `json:"predicted_at"`
}

// NewEvent constructs an Event for a completed prediction.
func NewEvent(projectID, iterationID, imageURL string, statusCode int, result domain.PredictionResult) Event {
	return Event{
		ProjectID:   projectID,
		IterationID: iterationID,
		ImageURL:    imageURL,
		StatusCode:  statusCode,
		Result:      result,
		PredictedAt: time.Now().UTC(),
	}
}

// attributes are attached to queue/topic messages for subscriber-side filtering.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"project_id":   e.ProjectID,
		"iteration_id": e.IterationID,
	}
	if top, ok := e.Result.Top(); ok && top.TagName != "" {
		attrs["top_tag"] = top.TagName
	}
	return attrs
}
