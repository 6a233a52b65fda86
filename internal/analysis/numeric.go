package analysis

import (
	"encoding/binary"

	"github.com/nao1215/udpscope/internal/model"
)

// IntegerViewWidth is the number of leading bytes reinterpreted as integers.
const IntegerViewWidth = 4

// Reinterpret views the first four bytes of payload as a signed 32-bit
// integer in both byte orders. It returns nil when payload is shorter
// than four bytes. Only the first window is used; the views are
// supplementary and never influence classification.
func Reinterpret(payload []byte) *model.IntegerViews {
	if len(payload) < IntegerViewWidth {
		return nil
	}
	window := payload[:IntegerViewWidth]
	return &model.IntegerViews{
		BigEndian:    int32(binary.BigEndian.Uint32(window)),    //nolint:gosec // intentional bit reinterpretation
		LittleEndian: int32(binary.LittleEndian.Uint32(window)), //nolint:gosec // intentional bit reinterpretation
	}
}
