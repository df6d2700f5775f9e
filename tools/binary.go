package tools

import (
	"encoding/binary"
	"math"
)

// Little endian uint32 representation of value
func ConvertIntToByteArray(value int) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(value))
	return out
}

func ConvertTruncateFloat64ToFloat32ByteArray(values []float64) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

func ConvertUint32ArrayToByteArray(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// Appends pad until the length of data is a multiple of 4
func PadTo4(data []byte, pad byte) []byte {
	for len(data)%4 != 0 {
		data = append(data, pad)
	}
	return data
}
