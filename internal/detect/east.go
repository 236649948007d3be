package detect

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"

	"gocv.io/x/gocv"

	"textmask/internal/config"
	"textmask/internal/regions"
	"textmask/internal/services"
)

// EAST output layers: per-cell text scores and rotated-box geometry.
var eastOutputLayers = []string{
	"feature_fusion/Conv_7/Sigmoid",
	"feature_fusion/concat_3",
}

// EAST runs the frozen EAST text detection graph through OpenCV's DNN
// module. One instance is reused across all detection cycles of a run; it is
// not safe for concurrent use, which matches the strictly sequential
// pipeline.
type EAST struct {
	net         gocv.Net
	inputSize   image.Point
	scoreThresh float32
	nmsThresh   float32
}

// NewEAST loads the detection graph described by cfg.
func NewEAST(cfg config.Detection) (*EAST, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "detect", "load model", cfg.ModelPath, err)
	}
	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, services.Wrap(services.ErrExternalTool, "detect", "load model",
			fmt.Sprintf("unable to read EAST graph from %s", cfg.ModelPath), nil)
	}
	if cfg.GPU {
		// Hint only. OpenCV falls back to CPU execution when it was built
		// without CUDA; detection results are identical either way.
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}
	return &EAST{
		net:         net,
		inputSize:   image.Pt(cfg.InputWidth, cfg.InputHeight),
		scoreThresh: float32(cfg.ScoreThreshold),
		nmsThresh:   float32(cfg.NMSThreshold),
	}, nil
}

// Close releases the network.
func (e *EAST) Close() error {
	return e.net.Close()
}

// Detect runs a full-frame detection pass and returns candidate text boxes
// in frame coordinates.
func (e *EAST) Detect(ctx context.Context, frame gocv.Mat) ([]regions.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, nil
	}

	// EAST was trained with these channel means.
	blob := gocv.BlobFromImage(frame, 1.0, e.inputSize,
		gocv.NewScalar(123.68, 116.78, 103.94, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	outs := e.net.ForwardLayers(eastOutputLayers)
	if len(outs) != 2 {
		for i := range outs {
			outs[i].Close()
		}
		return nil, fmt.Errorf("east forward: expected 2 output blobs, got %d", len(outs))
	}
	scores, geometry := outs[0], outs[1]
	defer scores.Close()
	defer geometry.Close()

	boxes, confidences, err := e.decode(scores, geometry)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, e.scoreThresh, e.nmsThresh)

	// Geometry was decoded at network resolution; scale back to the frame.
	scaleX := float64(frame.Cols()) / float64(e.inputSize.X)
	scaleY := float64(frame.Rows()) / float64(e.inputSize.Y)

	candidates := make([]regions.Candidate, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(boxes) {
			continue
		}
		b := boxes[idx]
		candidates = append(candidates, regions.Candidate{
			Box: image.Rect(
				int(float64(b.Min.X)*scaleX),
				int(float64(b.Min.Y)*scaleY),
				int(float64(b.Max.X)*scaleX),
				int(float64(b.Max.Y)*scaleY),
			),
			Confidence: float64(confidences[idx]),
		})
	}
	return candidates, nil
}

// decode converts the network's per-cell scores and rotated-box geometry
// into axis-aligned rectangles at network input resolution. The rotation
// angle is folded into an axis-aligned bound, which overshoots slightly for
// tilted text; occlusion only grows from it, never shrinks.
func (e *EAST) decode(scores, geometry gocv.Mat) ([]image.Rectangle, []float32, error) {
	sizes := scores.Size()
	if len(sizes) != 4 {
		return nil, nil, fmt.Errorf("east decode: unexpected score dims %v", sizes)
	}
	rows, cols := sizes[2], sizes[3]

	scoreData, err := scores.DataPtrFloat32()
	if err != nil {
		return nil, nil, fmt.Errorf("east decode: score data: %w", err)
	}
	geoData, err := geometry.DataPtrFloat32()
	if err != nil {
		return nil, nil, fmt.Errorf("east decode: geometry data: %w", err)
	}

	var boxes []image.Rectangle
	var confidences []float32
	plane := rows * cols
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cell := y*cols + x
			score := scoreData[cell]
			if score < e.scoreThresh {
				continue
			}

			top := float64(geoData[cell])
			right := float64(geoData[plane+cell])
			bottom := float64(geoData[2*plane+cell])
			left := float64(geoData[3*plane+cell])
			angle := float64(geoData[4*plane+cell])

			// The feature map is 4x downsampled from the network input.
			offsetX := float64(x) * 4.0
			offsetY := float64(y) * 4.0
			cosA, sinA := math.Cos(angle), math.Sin(angle)

			endX := offsetX + cosA*right + sinA*bottom
			endY := offsetY - sinA*right + cosA*bottom
			width := right + left
			height := top + bottom

			boxes = append(boxes, image.Rect(
				int(endX-width), int(endY-height), int(endX), int(endY),
			))
			confidences = append(confidences, score)
		}
	}
	return boxes, confidences, nil
}
