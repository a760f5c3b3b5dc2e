package customvision

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/samvad-hq/samvad-vision-predictor/internal/domain"
)

type wireResult struct {
	ID          string               `json:"id"`
	Project     string               `json:"project"`
	Iteration   string               `json:"iteration"`
	Created     time.Time            `json:"created"`
	Predictions *[]domain.Prediction `json:"predictions"`
}

// ParseResult decodes a prediction response body. The predictions field must be present.
func ParseResult(body []byte) (*domain.PredictionResult, error) {
	var w wireResult
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &MalformedPayloadError{Stage: StageResponse, Err: err}
	}
	if w.Predictions == nil {
		return nil, &MalformedPayloadError{Stage: StageResponse, Err: errors.New("predictions field missing")}
	}
	return &domain.PredictionResult{
		ID:          w.ID,
		Project:     w.Project,
		Iteration:   w.Iteration,
		Created:     w.Created,
		Predictions: *w.Predictions,
	}, nil
}
