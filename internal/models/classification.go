package models

import "time"

// LabelScore pairs a classifier label with its confidence.
type LabelScore struct {
	Label      string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ClassificationResult is the outcome of classifying one image.
// Product is nil when the predicted label has no catalog entry.
type ClassificationResult struct {
	PredictedLabel     string       `json:"prediction"`
	Confidence         float64      `json:"confidence"`
	Confident          bool         `json:"confident"`
	RankedAlternatives []LabelScore `json:"top_predictions"`
	Product            *Product     `json:"product"`
	Timestamp          time.Time    `json:"timestamp"`
}
