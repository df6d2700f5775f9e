package tools

import (
	"encoding/json"
)

func FmtJSONString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "marshal data fail"
	}
	return string(data)
}

const (
	FloatMin = 0.000001
)

// f1 <= f2 up to FloatMin
func IsFloatLessOrEqual(f1, f2 float64) bool {
	return f1 < f2+FloatMin
}
