package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/imaging"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/repository"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Predict(ctx context.Context, tensor *imaging.Tensor) ([]float32, error) {
	args := m.Called(ctx, tensor)
	scores, _ := args.Get(0).([]float32)
	return scores, args.Error(1)
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestAdapter(t *testing.T, model Model, labels []string) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(model, repository.NewDefaultProductRepository(), Options{
		Labels:              labels,
		ConfidenceThreshold: 0.6,
		Clock:               func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return adapter
}

func TestAdapter_ClassifyMatchesCatalog(t *testing.T) {
	model := new(mockModel)
	tensor := &imaging.Tensor{Shape: [4]int{1, 1, 1, 3}, Data: []float32{0, 0, 0}}
	model.On("Predict", mock.Anything, tensor).Return([]float32{0.1, 0.8, 0.1}, nil).Once()

	adapter := newTestAdapter(t, model, []string{"banana", "Apple", "kiwi"})
	result, err := adapter.Classify(context.Background(), tensor)
	require.NoError(t, err)

	assert.Equal(t, "Apple", result.PredictedLabel)
	assert.True(t, result.Confident)
	require.NotNil(t, result.Product)
	assert.Equal(t, "apple", result.Product.Label)
	assert.Equal(t, fixedNow, result.Timestamp)
	assert.Len(t, result.RankedAlternatives, 3)
	model.AssertExpectations(t)
}

func TestAdapter_UnmatchedLabelIsNotAnError(t *testing.T) {
	model := new(mockModel)
	model.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.3, 0.7}, nil).Once()

	adapter := newTestAdapter(t, model, []string{"apple", "pomegranate"})
	result, err := adapter.Classify(context.Background(), &imaging.Tensor{})
	require.NoError(t, err)

	assert.Equal(t, "pomegranate", result.PredictedLabel)
	assert.Nil(t, result.Product)
}

func TestAdapter_LowConfidence(t *testing.T) {
	model := new(mockModel)
	model.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.4, 0.35, 0.25}, nil).Once()

	adapter := newTestAdapter(t, model, []string{"apple", "banana", "lemon"})
	result, err := adapter.Classify(context.Background(), &imaging.Tensor{})
	require.NoError(t, err)

	assert.Equal(t, "apple", result.PredictedLabel)
	assert.False(t, result.Confident)
}

func TestAdapter_ModelFailure(t *testing.T) {
	model := new(mockModel)
	boom := errors.New("runtime crashed")
	model.On("Predict", mock.Anything, mock.Anything).Return(nil, boom).Once()

	adapter := newTestAdapter(t, model, []string{"apple"})
	_, err := adapter.Classify(context.Background(), &imaging.Tensor{})

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.ErrorIs(t, err, boom)
}

func TestAdapter_ModelPanicIsInferenceError(t *testing.T) {
	model := new(mockModel)
	model.On("Predict", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("index out of range in native runtime")
	}).Return(nil, nil).Once()

	adapter := newTestAdapter(t, model, []string{"apple"})
	var err error
	require.NotPanics(t, func() {
		_, err = adapter.Classify(context.Background(), &imaging.Tensor{})
	})

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.ErrorIs(t, err, ErrModelPanic)
	assert.Contains(t, err.Error(), "index out of range in native runtime")

	// The adapter stays usable after a panic.
	model.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.9}, nil).Once()
	result, err := adapter.Classify(context.Background(), &imaging.Tensor{})
	require.NoError(t, err)
	assert.Equal(t, "apple", result.PredictedLabel)
}

func TestAdapter_OutOfRangeScoresAreInferenceError(t *testing.T) {
	model := new(mockModel)
	model.On("Predict", mock.Anything, mock.Anything).Return([]float32{3.7, -2.1}, nil).Once()

	adapter := newTestAdapter(t, model, []string{"apple", "banana"})
	_, err := adapter.Classify(context.Background(), &imaging.Tensor{})

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestAdapter_ShapeMismatchIsInferenceError(t *testing.T) {
	model := new(mockModel)
	model.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.5, 0.5}, nil).Once()

	adapter := newTestAdapter(t, model, []string{"apple", "banana", "lemon"})
	_, err := adapter.Classify(context.Background(), &imaging.Tensor{})

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.ErrorIs(t, err, ErrScoreMismatch)
}

func TestAdapter_NoModel(t *testing.T) {
	adapter := newTestAdapter(t, nil, DefaultLabels)
	assert.False(t, adapter.ModelLoaded())

	_, err := adapter.Classify(context.Background(), &imaging.Tensor{})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestNewAdapter_Validation(t *testing.T) {
	_, err := NewAdapter(nil, nil, Options{Labels: DefaultLabels})
	assert.Error(t, err)

	_, err = NewAdapter(nil, repository.NewDefaultProductRepository(), Options{})
	assert.ErrorIs(t, err, ErrEmptyLabelSet)
}
