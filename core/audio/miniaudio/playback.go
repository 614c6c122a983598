package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-chat/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	encoding     audio.EncodingInfo

	pending []byte
	marks   []playbackMark

	mu      sync.Mutex
	audioMu sync.Mutex
}

type playbackMark struct {
	position int
	// callback reports whether the audio before the mark was played or
	// dropped by ClearBuffer.
	callback func(played bool)
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.audioContext = audioContext
	return c.initDevice(encoding)
}

// initDevice expects c.mu to be held.
func (c *playbackClient) initDevice(encoding audio.EncodingInfo) error {
	if encoding.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported playback format %q", encoding.Format.Name())
	}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * encoding.Channels
	sampleRate := uint32(encoding.SampleRate)

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(encoding.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	)
	if err != nil {
		return err
	}

	c.device = device
	c.encoding = encoding
	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if c.device.IsStarted() {
		return nil
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil && c.device.IsStarted()
}

// Reconfigure reopens the device when a clip arrives in a different
// encoding than the device was opened with. The device keeps its started
// state.
func (c *playbackClient) Reconfigure(encoding audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if encoding == c.encoding {
		return nil
	}

	wasStarted := c.device != nil && c.device.IsStarted()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.ClearBuffer()

	if err := c.initDevice(encoding); err != nil {
		return fmt.Errorf("failed to reopen playback device: %w", err)
	}
	if wasStarted {
		if err := c.device.Start(); err != nil {
			return fmt.Errorf("failed to restart playback device: %w", err)
		}
	}
	return nil
}

func (c *playbackClient) SendAudio(pcm []byte) error {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.pending = append(c.pending, pcm...)
	return nil
}

// Mark registers callback to run once everything sent so far was handed to
// the device, or was dropped.
func (c *playbackClient) Mark(callback func(played bool)) {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		position: len(c.pending),
		callback: callback,
	})
}

// ClearBuffer drops all pending audio. Every pending mark is reported as
// not played, including marks of other callers.
func (c *playbackClient) ClearBuffer() {
	c.audioMu.Lock()
	dropped := c.marks
	c.pending = nil
	c.marks = nil
	c.audioMu.Unlock()

	notifyMarks(dropped, false)
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.audioMu.Lock()
		n := copy(pOutput, c.pending)
		c.pending = c.pending[n:]
		passed := c.passMarks(need)
		c.audioMu.Unlock()

		// Underruns are padded with silence.
		clear(pOutput[n:])

		notifyMarks(passed, true)
	}
}

func notifyMarks(marks []playbackMark, played bool) {
	if len(marks) == 0 {
		return
	}
	go func() {
		for _, mark := range marks {
			mark.callback(played)
		}
	}()
}

// passMarks expects c.audioMu to be held.
func (c *playbackClient) passMarks(until int) []playbackMark {
	passedMarks := 0
	for i, mark := range c.marks {
		if mark.position > until {
			c.marks[i].position -= until
		} else {
			passedMarks++
		}
	}
	if passedMarks == 0 {
		return nil
	}

	passed := c.marks[:passedMarks]
	c.marks = c.marks[passedMarks:]
	return passed
}
