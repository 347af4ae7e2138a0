package media

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/skyline/internal/raster"
)

// ErrEmptyFrame is returned when an operation is given a frame with no
// pixels.
var ErrEmptyFrame = errors.New("media: empty frame")

// ReadImage loads an image file as an RGB frame.
func ReadImage(path string) (*raster.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("read image %s: empty or unreadable", path)
	}
	defer mat.Close()
	return frameFromMat(mat)
}

// WriteImage saves a frame as an image file; the format follows the
// path's extension.
func WriteImage(path string, frame *raster.Frame) error {
	mat, err := matFromFrame(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("write image %s", path)
	}
	return nil
}

// EncodeJPEG compresses a frame to a JPEG buffer, for streaming.
func EncodeJPEG(frame *raster.Frame) ([]byte, error) {
	mat, err := matFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// frameFromMat copies a BGR mat into an RGB raster frame.
func frameFromMat(mat gocv.Mat) (*raster.Frame, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	data := rgb.ToBytes()
	frame := raster.NewRGB(rgb.Cols(), rgb.Rows())
	copy(frame.Pix, data)
	return frame, nil
}

// matFromFrame copies a raster frame into a BGR mat. Grayscale frames
// are widened to three channels first.
func matFromFrame(frame *raster.Frame) (gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return gocv.Mat{}, ErrEmptyFrame
	}

	rgb := frame
	if frame.Channels == raster.Grayscale {
		rgb = expandGray(frame)
	}

	mat, err := gocv.NewMatFromBytes(rgb.Height, rgb.Width, gocv.MatTypeCV8UC3, rgb.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap frame bytes: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBToBGR)
	return bgr, nil
}

func expandGray(frame *raster.Frame) *raster.Frame {
	out := raster.NewRGB(frame.Width, frame.Height)
	for i, v := range frame.Pix {
		out.Pix[i*3] = v
		out.Pix[i*3+1] = v
		out.Pix[i*3+2] = v
	}
	return out
}
