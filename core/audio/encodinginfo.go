package audio

import "time"

// Defaults match the backend's mp3_44100_128 output once decoded.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Channels: DefaultChannels, Format: EncodingLinear16}
}

// EncodingInfo describes interleaved PCM as handed to a Sink.
type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Channels == 0 || e.Format.Name() == ""
}

// FrameSize is the number of bytes holding one sample for every channel.
func (e EncodingInfo) FrameSize() int {
	if e.Format.ByteSize() <= 0 || e.Channels <= 0 {
		return 0
	}
	return e.Format.ByteSize() * e.Channels
}

// Duration reports how long n bytes of audio take to play.
func (e EncodingInfo) Duration(n int) time.Duration {
	frameSize := e.FrameSize()
	if frameSize == 0 || e.SampleRate <= 0 {
		return 0
	}
	frames := n / frameSize
	return time.Duration(frames) * time.Second / time.Duration(e.SampleRate)
}

// Bytes is the inverse of Duration, rounded down to whole frames.
func (e EncodingInfo) Bytes(d time.Duration) int {
	frames := int(d * time.Duration(e.SampleRate) / time.Second)
	return frames * e.FrameSize()
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
