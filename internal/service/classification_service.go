package service

import (
	"context"
	"log/slog"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/imaging"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

// TensorClassifier classifies normalized image tensors.
type TensorClassifier interface {
	Classify(ctx context.Context, tensor *imaging.Tensor) (models.ClassificationResult, error)
	ModelLoaded() bool
}

// ClassificationService runs the capture -> tensor -> prediction -> product pipeline.
type ClassificationService struct {
	normalizer *imaging.Normalizer
	classifier TensorClassifier
	size       imaging.Size
	log        *slog.Logger
}

// NewClassificationService creates a new classification service
func NewClassificationService(normalizer *imaging.Normalizer, classifier TensorClassifier, size imaging.Size, log *slog.Logger) *ClassificationService {
	return &ClassificationService{
		normalizer: normalizer,
		classifier: classifier,
		size:       size,
		log:        log,
	}
}

// ModelLoaded reports whether inference is available.
func (s *ClassificationService) ModelLoaded() bool {
	return s.classifier.ModelLoaded()
}

// Classify decodes an encoded (optionally data-URI prefixed) image and classifies it.
// Errors are *imaging.ProcessingError or *classifier.InferenceError.
func (s *ClassificationService) Classify(ctx context.Context, encoded string) (models.ClassificationResult, error) {
	tensor, err := s.normalizer.Normalize(encoded, s.size)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	result, err := s.classifier.Classify(ctx, tensor)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	s.log.Debug("image classified",
		"prediction", result.PredictedLabel,
		"confidence", result.Confidence,
		"matched", result.Product != nil,
	)
	return result, nil
}
