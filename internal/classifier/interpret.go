package classifier

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

// TopK is the maximum number of ranked alternatives reported.
const TopK = 3

// scoreTolerance absorbs float32 rounding in softmax output.
const scoreTolerance = 1e-4

var (
	ErrScoreMismatch = errors.New("score vector length does not match label set")
	ErrInvalidScore  = errors.New("score is not a probability")
	ErrEmptyLabelSet = errors.New("label set is empty")
)

// Prediction is the catalog-independent reading of a score vector.
type Prediction struct {
	Label      string
	Confidence float64
	Ranked     []models.LabelScore
}

// Interpret maps raw model scores onto labels.
// The predicted label is the first index holding the maximum score, and the
// ranking is a stable descending sort, so equal scores keep label-set order.
// Every score must be a finite value in [0, 1].
func Interpret(scores []float32, labels []string) (Prediction, error) {
	if len(labels) == 0 {
		return Prediction{}, ErrEmptyLabelSet
	}
	if len(scores) != len(labels) {
		return Prediction{}, fmt.Errorf("%w: got %d scores for %d labels", ErrScoreMismatch, len(scores), len(labels))
	}

	best := 0
	for i, s := range scores {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return Prediction{}, fmt.Errorf("%w: index %d is not finite", ErrInvalidScore, i)
		}
		if s < -scoreTolerance || s > 1+scoreTolerance {
			return Prediction{}, fmt.Errorf("%w: index %d is %g", ErrInvalidScore, i, s)
		}
		if s > scores[best] {
			best = i
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	k := min(TopK, len(labels))
	ranked := make([]models.LabelScore, k)
	for i := 0; i < k; i++ {
		idx := order[i]
		ranked[i] = models.LabelScore{Label: labels[idx], Confidence: float64(scores[idx])}
	}

	return Prediction{
		Label:      labels[best],
		Confidence: float64(scores[best]),
		Ranked:     ranked,
	}, nil
}
