package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps raw 16-bit mono PCM samples in a WAV container so clients
// can play synthesized audio without knowing the sample format.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm))) //nolint:errcheck
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))            //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(1))             //nolint:errcheck // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))   //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))    //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))      //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))    //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample)) //nolint:errcheck

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm))) //nolint:errcheck
	buf.Write(pcm)

	return buf.Bytes()
}
