package demux

import (
	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
)

const (
	CodecAVC  = "AVC"
	CodecHEVC = "HEVC"
	CodecAAC  = "AAC"
)

// HEVC IRAP picture range (BLA, IDR, CRA and reserved IRAP types).
const (
	hevcIRAPFirst = hevc.NaluType(16)
	hevcIRAPLast  = hevc.NaluType(23)
)

// IsKeyframe reports whether an access unit can be decoded on its own.
// A set random access indicator is trusted; otherwise the Annex B payload
// is scanned for an IDR (AVC) or IRAP (HEVC) picture. Audio frames are
// always independent.
func IsKeyframe(codec string, rai bool, data []byte) bool {
	if rai {
		return true
	}
	switch codec {
	case CodecAVC:
		for _, nalu := range avc.ExtractNalusFromByteStream(data) {
			if len(nalu) > 0 && avc.GetNaluType(nalu[0]) == avc.NALU_IDR {
				return true
			}
		}
	case CodecHEVC:
		for _, nalu := range avc.ExtractNalusFromByteStream(data) {
			if len(nalu) == 0 {
				continue
			}
			if t := hevc.GetNaluType(nalu[0]); t >= hevcIRAPFirst && t <= hevcIRAPLast {
				return true
			}
		}
	case CodecAAC:
		return true
	}
	return false
}

// NaluTypes lists the NAL unit types of an Annex B access unit.
func NaluTypes(codec string, data []byte) []string {
	nalus := avc.ExtractNalusFromByteStream(data)
	types := make([]string, 0, len(nalus))
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch codec {
		case CodecAVC:
			types = append(types, avc.GetNaluType(nalu[0]).String())
		case CodecHEVC:
			types = append(types, hevc.GetNaluType(nalu[0]).String())
		}
	}
	return types
}
