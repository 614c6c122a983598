package audio

import (
	"bytes"
	"time"
)

// Clip is a fully decoded piece of audio ready for a Sink.
type Clip struct {
	PCM      []byte
	Encoding EncodingInfo
}

func (c Clip) Duration() time.Duration {
	return c.Encoding.Duration(len(c.PCM))
}

func (c Clip) IsEmpty() bool {
	return len(c.PCM) == 0
}

// Silence builds an inaudible clip of roughly d.
func Silence(encoding EncodingInfo, d time.Duration) Clip {
	n := encoding.Bytes(d)
	if n <= 0 {
		n = encoding.FrameSize()
	}
	return Clip{
		PCM:      bytes.Repeat([]byte{encoding.SilenceValue()}, n),
		Encoding: encoding,
	}
}
