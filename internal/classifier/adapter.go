// Package classifier turns model output into labeled, catalog-matched results.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/imaging"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

const meterName = "github.com/Lixing-Zhang/smart-checkout/backend/internal/classifier"

var (
	// ErrModelUnavailable is returned when no model has been loaded.
	ErrModelUnavailable = errors.New("model not loaded")
	ErrModelPanic       = errors.New("model panicked")
)

// Model is the opaque image classifier: one tensor in, one score per label out.
// Scores are probabilities in [0, 1].
type Model interface {
	Predict(ctx context.Context, tensor *imaging.Tensor) ([]float32, error)
}

// ProductLookup resolves a label to a catalog product.
type ProductLookup interface {
	Lookup(label string) (models.Product, bool)
}

// InferenceError wraps a failed model call or an unusable model output.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Options configures an Adapter.
type Options struct {
	Labels              []string
	ConfidenceThreshold float64
	Clock               func() time.Time
	Meter               metric.Meter
}

// Adapter classifies tensors with a Model and attaches catalog products.
// It holds no per-request state; concurrent calls are safe if the Model is.
type Adapter struct {
	model     Model
	labels    []string
	catalog   ProductLookup
	threshold float64
	now       func() time.Time

	predictions metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewAdapter creates an Adapter. model may be nil, in which case every
// Classify call fails with ErrModelUnavailable.
func NewAdapter(model Model, catalog ProductLookup, opts Options) (*Adapter, error) {
	if catalog == nil {
		return nil, fmt.Errorf("classifier: catalog is required")
	}
	if len(opts.Labels) == 0 {
		return nil, ErrEmptyLabelSet
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}

	a := &Adapter{
		model:     model,
		labels:    append([]string(nil), opts.Labels...),
		catalog:   catalog,
		threshold: opts.ConfidenceThreshold,
		now:       now,
	}

	// Instrument creation only fails for invalid names; a nil instrument just disables recording.
	a.predictions, _ = meter.Int64Counter(
		"classifier.predictions",
		metric.WithDescription("Count of successful classifications by predicted label"),
	)
	a.latency, _ = meter.Float64Histogram(
		"classifier.inference.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of model inference calls"),
	)

	return a, nil
}

// Labels returns a copy of the adapter's label set.
func (a *Adapter) Labels() []string {
	return append([]string(nil), a.labels...)
}

// ModelLoaded reports whether a model backs the adapter.
func (a *Adapter) ModelLoaded() bool {
	return a.model != nil
}

// predict calls the model, turning a panic inside it into an error.
func (a *Adapter) predict(ctx context.Context, tensor *imaging.Tensor) (scores []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores, err = nil, fmt.Errorf("%w: %v", ErrModelPanic, r)
		}
	}()
	return a.model.Predict(ctx, tensor)
}

// Classify runs the model on tensor and interprets the scores.
// A predicted label without a catalog entry yields a nil Product, not an error.
func (a *Adapter) Classify(ctx context.Context, tensor *imaging.Tensor) (models.ClassificationResult, error) {
	if a.model == nil {
		return models.ClassificationResult{}, &InferenceError{Err: ErrModelUnavailable}
	}

	start := time.Now()
	scores, err := a.predict(ctx, tensor)
	if a.latency != nil {
		a.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	}
	if err != nil {
		return models.ClassificationResult{}, &InferenceError{Err: err}
	}

	prediction, err := Interpret(scores, a.labels)
	if err != nil {
		return models.ClassificationResult{}, &InferenceError{Err: err}
	}

	result := models.ClassificationResult{
		PredictedLabel:     prediction.Label,
		Confidence:         prediction.Confidence,
		Confident:          prediction.Confidence >= a.threshold,
		RankedAlternatives: prediction.Ranked,
		Timestamp:          a.now().UTC(),
	}
	if product, ok := a.catalog.Lookup(prediction.Label); ok {
		result.Product = &product
	}

	if a.predictions != nil {
		a.predictions.Add(ctx, 1, metric.WithAttributes(attribute.String("label", prediction.Label)))
	}

	return result, nil
}
