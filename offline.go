package picosynth

import "encoding/binary"

// Render pumps the sequencer offline until playback finishes, returning
// mono 16-bit PCM. maxSamples caps runaway scores; 0 means one minute.
func Render(q *Sequencer, maxSamples int) []int16 {
	if maxSamples <= 0 {
		maxSamples = SampleRate * 60
	}
	var out []int16
	buf := make([]int16, 512)
	for !q.Finished() && len(out) < maxSamples {
		n := maxSamples - len(out)
		if n > len(buf) {
			n = len(buf)
		}
		q.Process(buf[:n])
		out = append(out, buf[:n]...)
	}
	return out
}

// RenderScore is the one-call offline path: parse a text melody, play it
// on the given voices of s, and return the rendered samples.
func RenderScore(s *Synth, text string, voices []int, opts SeqOptions) ([]int16, error) {
	events, err := CompileScore(text, voices)
	if err != nil {
		return nil, err
	}
	return Render(NewSequencer(s, events, opts), 0), nil
}

// EncodeWAV wraps mono 16-bit PCM in a canonical 44-byte RIFF header.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	byteRate := sampleRate * 2
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], 1) // mono
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], 2)  // block align
	binary.LittleEndian.PutUint16(out[34:], 16) // bits per sample
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}
	return out
}
