package rpc

import (
	"encoding/json"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// AvatarField carries the base64 PNG avatar in GetIpm responses.
const AvatarField = "avatar_png"

// StringMap flattens s into push-style string data. Numbers, bools and
// nested values are rendered as text; nulls are dropped.
func StringMap(s *structpb.Struct) map[string]string {
	out := make(map[string]string, len(s.GetFields()))
	for k, v := range s.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			out[k] = kind.StringValue
		case *structpb.Value_BoolValue:
			out[k] = strconv.FormatBool(kind.BoolValue)
		case *structpb.Value_NumberValue:
			n := kind.NumberValue
			if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
				out[k] = strconv.FormatInt(int64(n), 10)
			} else {
				out[k] = strconv.FormatFloat(n, 'f', -1, 64)
			}
		case *structpb.Value_StructValue, *structpb.Value_ListValue:
			if b, err := json.Marshal(v.AsInterface()); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

// StructFromStrings builds a Struct of string values.
func StructFromStrings(m map[string]string) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(m))}
	for k, v := range m {
		s.Fields[k] = structpb.NewStringValue(v)
	}
	return s
}

// String returns the string field key of s, or "".
func String(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}
