package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/classifier"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/imaging"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

// DefaultMaxRequestBytes bounds a predict body. Base64 inflates the image by a third.
const DefaultMaxRequestBytes = imaging.DefaultMaxPayloadBytes*4/3 + 1024

const (
	streamReadWait  = 60 * time.Second
	streamPingEvery = 50 * time.Second
	streamWriteWait = 10 * time.Second
)

type imageClassifier interface {
	Classify(ctx context.Context, encoded string) (models.ClassificationResult, error)
	ModelLoaded() bool
}

// ClassificationHandler serves image recognition over HTTP and websocket
type ClassificationHandler struct {
	classifier imageClassifier
	maxBytes   int64
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewClassificationHandler creates a new classification handler.
// maxBytes <= 0 means DefaultMaxRequestBytes.
func NewClassificationHandler(classifier imageClassifier, maxBytes int64, logger *slog.Logger) *ClassificationHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBytes
	}
	return &ClassificationHandler{
		classifier: classifier,
		maxBytes:   maxBytes,
		upgrader: websocket.Upgrader{
			// Origins are enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type predictRequest struct {
	Image string `json:"image"`
}

// PredictResponse is the classification result wrapped in the success envelope
type PredictResponse struct {
	Success bool `json:"success"`
	models.ClassificationResult
}

// Predict handles POST /api/predict
// - 200: classified
// - 400: missing or undecodable image
// - 500: inference failed
// - 503: no model loaded
func (h *ClassificationHandler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		if isBodyTooLarge(err) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Image payload too large", h.logger)
			return
		}
		h.logger.Warn("failed to decode predict request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		WriteError(w, http.StatusBadRequest, "No image data provided", h.logger)
		return
	}

	result, err := h.classifier.Classify(r.Context(), req.Image)
	if err != nil {
		status, message := classificationErrorStatus(err)
		h.logger.Warn("classification failed", "status", status, "error", err)
		WriteError(w, status, message, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, PredictResponse{Success: true, ClassificationResult: result}, h.logger)
}

// Stream handles GET /api/predict/stream
// Each text or binary frame is one encoded image; each reply is a PredictResponse
// or an error envelope. A bad frame does not close the connection.
func (h *ClassificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxBytes)
	conn.SetReadDeadline(time.Now().Add(streamReadWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.keepAlive(ctx, conn)

	h.logger.Info("classification stream opened", "remote_addr", r.RemoteAddr)
	frames := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("classification stream read failed", "error", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(streamReadWait))
		frames++

		var reply interface{}
		result, err := h.classifier.Classify(ctx, string(msg))
		if err != nil {
			_, message := classificationErrorStatus(err)
			reply = errorResponse{Success: false, Error: message}
		} else {
			reply = PredictResponse{Success: true, ClassificationResult: result}
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("classification stream write failed", "error", err)
			break
		}
	}
	h.logger.Info("classification stream closed", "remote_addr", r.RemoteAddr, "frames", frames)
}

// keepAlive pings the peer so idle kiosks keep their read deadline fresh.
// gorilla allows WriteControl concurrently with WriteJSON.
func (h *ClassificationHandler) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func classificationErrorStatus(err error) (int, string) {
	var procErr *imaging.ProcessingError
	if errors.As(err, &procErr) {
		return http.StatusBadRequest, procErr.Error()
	}
	if errors.Is(err, classifier.ErrModelUnavailable) {
		return http.StatusServiceUnavailable, "Model not loaded"
	}
	var infErr *classifier.InferenceError
	if errors.As(err, &infErr) {
		return http.StatusInternalServerError, "Inference failed"
	}
	return http.StatusInternalServerError, "Internal server error"
}
