package frame_source

import (
	"errors"
	"image"
	"time"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/cogentcore/reisen"
)

// DefaultSampleRate is the number of frames kept per second of media time.
const DefaultSampleRate = 24.0

var errNoVideoStream = errors.New("no video stream")

type videoDecoder struct {
	path string
	fps  float64
}

var _ Decoder = &videoDecoder{}

// NewVideoDecoder returns a decoder that reads the first video stream of a container through
// FFmpeg and keeps one frame per 1/fps of media time.
//
// Parameters:
//   - path: the container path
//   - fps: the sampling rate, DefaultSampleRate when <= 0
//
// Returns:
//   - Decoder: the video decoder
func NewVideoDecoder(path string, fps float64) Decoder {
	if fps <= 0 {
		fps = DefaultSampleRate
	}
	return &videoDecoder{path: path, fps: fps}
}

func (d *videoDecoder) Name() string {
	return d.path
}

func (d *videoDecoder) Decode(maxFrames int) ([]image.Image, error) {
	media, err := reisen.NewMedia(d.path)
	if err != nil {
		return nil, d.fail(-1, err)
	}
	defer media.Close()

	if err := media.OpenDecode(); err != nil {
		return nil, d.fail(-1, err)
	}
	defer media.CloseDecode()

	streams := media.VideoStreams()
	if len(streams) == 0 {
		return nil, d.fail(-1, errNoVideoStream)
	}
	stream := streams[0]
	if err := stream.Open(); err != nil {
		return nil, d.fail(-1, err)
	}
	defer stream.Close()

	interval := time.Duration(float64(time.Second) / d.fps)
	var next time.Duration
	var frames []image.Image

	for maxFrames <= 0 || len(frames) < maxFrames {
		packet, gotPacket, err := media.ReadPacket()
		if err != nil {
			return nil, d.fail(len(frames), err)
		}
		if !gotPacket {
			break
		}
		if packet.Type() != reisen.StreamVideo {
			continue
		}
		if s, ok := media.Streams()[packet.StreamIndex()].(*reisen.VideoStream); !ok || s != stream {
			continue
		}

		frame, gotFrame, err := stream.ReadVideoFrame()
		if err != nil {
			return nil, d.fail(len(frames), err)
		}
		if !gotFrame || frame == nil {
			continue
		}

		offset, err := frame.PresentationOffset()
		if err != nil {
			return nil, d.fail(len(frames), err)
		}
		if offset < next {
			continue
		}
		frames = append(frames, frame.Image())
		for next <= offset {
			next += interval
		}
	}

	common.Logger().Debug("video decoded", "path", d.path, "frames", len(frames), "fps", d.fps)
	return frames, nil
}

func (d *videoDecoder) fail(frame int, err error) error {
	return &common.DecodeFailure{Source: d.path, Frame: frame, Err: err}
}
