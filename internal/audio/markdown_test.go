package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripMarkdown(t *testing.T) {
	assert.Equal(t, "bold and italic", StripMarkdown("**bold** and _italic_"))
	assert.Equal(t, "Heading\nbody", StripMarkdown("## Heading\nbody"))
	assert.Equal(t, "see the docs", StripMarkdown("see [the docs](https://example.com)"))
	assert.Equal(t, "a chart", StripMarkdown("![a chart](chart.png)"))
	assert.Equal(t, "run go test", StripMarkdown("run `go test`"))
	assert.Equal(t, "first\nsecond", StripMarkdown("- first\n- second"))
	assert.Equal(t, "quoted", StripMarkdown("> quoted"))
	assert.Equal(t, "before\n\nafter", StripMarkdown("before\n```go\ncode here\n```\nafter"))
	assert.Equal(t, "plain text stays", StripMarkdown("plain text stays"))
}

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav := EncodeWAV(pcm, 24000)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))  // mono
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36])) // bit depth
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}
