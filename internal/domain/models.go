package domain

import (
	"sort"
	"time"
)

// PredictionResult is the decoded body of a Custom Vision prediction response.
type PredictionResult struct {
	ID          string       `json:"id"`
	Project     string       `json:"project"`
	Iteration   string       `json:"iteration"`
	Created     time.Time    `json:"created"`
	Predictions []Prediction `json:"predictions"`
}

// Prediction is one tag score. BoundingBox is only set by object detection projects.
type Prediction struct {
	Probability float64      `json:"probability"`
	TagID       string       `json:"tagId"`
	TagName     string       `json:"tagName"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// BoundingBox holds normalized (0..1) coordinates.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Top returns the highest-probability prediction.
func (r PredictionResult) Top() (Prediction, bool) {
	if len(r.Predictions) == 0 {
		return Prediction{}, false
	}
	best := r.Predictions[0]
	for _, p := range r.Predictions[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}
	return best, true
}

// Ranked returns a copy of the predictions ordered by descending probability.
func (r PredictionResult) Ranked() []Prediction {
	out := append([]Prediction(nil), r.Predictions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out
}

// PredictionRecord is the history entry kept for a classified image.
type PredictionRecord struct {
	ID             string    `json:"id"`
	ImageURL       string    `json:"image_url"`
	ProjectID      string    `json:"project_id"`
	IterationID    string    `json:"iteration_id"`
	TopTag         string    `json:"top_tag"`
	TopProbability float64   `json:"top_probability"`
	PredictedAt    time.Time `json:"predicted_at"`
}
