// Package video wraps OpenCV's container decode and encode behind the
// narrow interfaces the pipeline consumes.
package video

import (
	"fmt"

	"gocv.io/x/gocv"

	"textmask/internal/services"
)

// Info describes the opened input stream.
type Info struct {
	Width  int
	Height int
	FPS    float64
	// TotalFrames is the container's reported frame count, or 0 when the
	// container does not report one. It is only used for progress display.
	TotalFrames int
}

// fourcc used for the intermediate video-only output.
const outputFourCC = "mp4v"

// fallbackFPS is used when the container reports no frame rate.
const fallbackFPS = 30.0

// Reader decodes frames from a video file in order.
type Reader struct {
	capture *gocv.VideoCapture
	info    Info
}

// OpenReader opens the input container for sequential decoding.
func OpenReader(path string) (*Reader, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "video", "open input", path, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, services.Wrap(services.ErrNotFound, "video", "open input",
			fmt.Sprintf("unable to decode %s", path), nil)
	}

	info := Info{
		Width:       int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:         capture.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(capture.Get(gocv.VideoCaptureFrameCount)),
	}
	if info.FPS <= 0 {
		info.FPS = fallbackFPS
	}
	if info.TotalFrames < 0 {
		info.TotalFrames = 0
	}
	if info.Width <= 0 || info.Height <= 0 {
		_ = capture.Close()
		return nil, services.Wrap(services.ErrExternalTool, "video", "open input",
			fmt.Sprintf("container reports invalid frame size %dx%d", info.Width, info.Height), nil)
	}
	return &Reader{capture: capture, info: info}, nil
}

// Info returns the stream parameters observed at open time.
func (r *Reader) Info() Info {
	return r.info
}

// Read decodes the next frame into dst, returning false at end of stream.
func (r *Reader) Read(dst *gocv.Mat) bool {
	return r.capture.Read(dst) && !dst.Empty()
}

// Close releases the decoder.
func (r *Reader) Close() error {
	return r.capture.Close()
}

// Writer encodes frames to the intermediate video-only file.
type Writer struct {
	writer *gocv.VideoWriter
}

// OpenWriter opens the output encoder with the source's geometry.
func OpenWriter(path string, info Info) (*Writer, error) {
	writer, err := gocv.VideoWriterFile(path, outputFourCC, info.FPS, info.Width, info.Height, true)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "video", "open output", path, err)
	}
	if !writer.IsOpened() {
		_ = writer.Close()
		return nil, services.Wrap(services.ErrExternalTool, "video", "open output",
			fmt.Sprintf("unable to open encoder for %s", path), nil)
	}
	return &Writer{writer: writer}, nil
}

// Write encodes one frame.
func (w *Writer) Write(frame gocv.Mat) error {
	return w.writer.Write(frame)
}

// Close flushes and releases the encoder.
func (w *Writer) Close() error {
	return w.writer.Close()
}
