// Package audio provides minimal WAV container handling for synthesized speech.
package audio

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const headerSize = 44

// Format describes the PCM layout of a WAV stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Decode extracts the PCM format and sample data from a WAV container.
// Only uncompressed PCM is supported. Chunks other than fmt and data are
// skipped, so engine-specific extras do not break decoding.
func Decode(data []byte) (Format, []byte, error) {
	var f Format
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return f, nil, errors.New("not a RIFF WAVE stream")
	}

	var pcm []byte
	seenFmt := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return f, nil, errors.Newf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return f, nil, errors.New("fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(data[body : body+2]); format != 1 {
				return f, nil, errors.Newf("unsupported audio format %d, want PCM", format)
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			seenFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word aligned
		}
	}

	if !seenFmt {
		return f, nil, errors.New("missing fmt chunk")
	}
	if pcm == nil {
		return f, nil, errors.New("missing data chunk")
	}
	return f, pcm, nil
}

// Encode wraps raw PCM data in a WAV container.
func Encode(pcm []byte, f Format) []byte {
	dataSize := len(pcm)
	byteRate := f.SampleRate * f.Channels * f.BitsPerSample / 8
	blockAlign := f.Channels * f.BitsPerSample / 8

	header := make([]byte, headerSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(f.BitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// Silence returns a WAV container holding the given number of zero samples.
func Silence(samples int, f Format) []byte {
	return Encode(make([]byte, samples*f.Channels*f.BitsPerSample/8), f)
}
