// Package inference hosts model backends for the classifier.
package inference

import (
	"context"
	"image"
	"os"
	"sync"
	"unsafe"

	"github.com/go-faster/errors"
	"gocv.io/x/gocv"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/imaging"
)

// ErrModelFileMissing is returned when the model path does not exist.
var ErrModelFileMissing = errors.New("model file not found")

// OpenCVModel runs a classification network through OpenCV's DNN module.
// Any format gocv.ReadNet understands works: ONNX, TensorFlow frozen graphs, Caffe.
type OpenCVModel struct {
	mu  sync.Mutex // gocv.Net is not safe for concurrent Forward calls
	net gocv.Net
}

// NewOpenCVModel loads the network at modelPath. configPath may be empty for
// self-describing formats such as ONNX.
func NewOpenCVModel(modelPath, configPath string) (*OpenCVModel, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrapf(ErrModelFileMissing, "%s", modelPath)
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errors.Wrapf(ErrModelFileMissing, "config %s", configPath)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, errors.New("failed to load network")
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "set backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "set target")
	}

	return &OpenCVModel{net: net}, nil
}

// Predict feeds the NHWC tensor to the network and returns its flattened output.
func (m *OpenCVModel) Predict(ctx context.Context, tensor *imaging.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tensor == nil || tensor.Shape[0] != 1 || tensor.Shape[3] != imaging.Channels {
		return nil, errors.New("tensor must be a single three channel image")
	}
	h, w := tensor.Height(), tensor.Width()
	if len(tensor.Data) != h*w*imaging.Channels {
		return nil, errors.Errorf("tensor data has %d values, shape needs %d", len(tensor.Data), h*w*imaging.Channels)
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(tensor.Data))), len(tensor.Data)*4)
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV32FC3, raw)
	if err != nil {
		return nil, errors.Wrap(err, "tensor to mat")
	}
	defer mat.Close()

	// Values are already scaled; the blob only reorders HWC to NCHW.
	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(w, h), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, errors.New("network produced no output")
	}

	flat := output.Reshape(1, 1)
	defer flat.Close()

	scores, err := flat.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read output")
	}
	return append([]float32(nil), scores...), nil
}

// Close releases the network.
func (m *OpenCVModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
