package audio

import "math"

// RMS computes the root-mean-square amplitude of a frame's PCM data,
// normalised to [0.0, 1.0] where 1.0 is full-scale int16. This is the
// energy measure used by the voice activity detector: values above the
// configured silence threshold count as voice presence.
//
// An empty or misaligned frame yields 0.
func RMS(f Frame) float64 {
	return RMSBytes(f.PCM)
}

// RMSBytes computes the normalised RMS amplitude of raw little-endian int16
// PCM data. Odd trailing bytes are ignored.
func RMSBytes(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < samples*2; i += 2 {
		s := float64(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
		sum += s * s
	}
	return math.Sqrt(sum/float64(samples)) / math.MaxInt16
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono
// output. Uses int32 arithmetic to prevent overflow and clamps to int16
// range.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int32(int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8))
		r := int32(int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8))
		avg := (l + r) / 2
		if avg > math.MaxInt16 {
			avg = math.MaxInt16
		} else if avg < math.MinInt16 {
			avg = math.MinInt16
		}
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}
