package gvm

import (
	"fmt"
	"strconv"
	"strings"
)

// DisplayValue renders v the way println/print do: scalars print their
// literal form, a string prints its raw content, an array prints
// "[v0;v1;...;]" and a dict prints "{ k -> v, ... }", recursing into
// heap-held elements.
func DisplayValue(h *Heap, v Value) string {
	switch v.Tag() {
	case TagNull:
		return "null"
	case TagByte:
		return strconv.Itoa(int(v.Byte()))
	case TagInteger:
		return strconv.Itoa(int(v.Integer()))
	case TagFloat:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case TagString:
		s, err := h.String(v.Handle())
		if err != nil {
			return "<invalid string>"
		}
		return s
	case TagArray:
		arr, err := h.Array(v.Handle())
		if err != nil {
			return "<invalid array>"
		}
		var b strings.Builder
		b.WriteByte('[')
		for _, elem := range arr {
			b.WriteString(DisplayValue(h, elem))
			b.WriteByte(';')
		}
		b.WriteByte(']')
		return b.String()
	case TagDict:
		c, err := h.get(v.Handle(), objDict)
		if err != nil {
			return "<invalid dict>"
		}
		var parts []string
		for k, val := range c.dict {
			parts = append(parts, fmt.Sprintf("%s -> %s", DisplayValue(h, k), DisplayValue(h, val)))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case TagClass:
		inst, err := h.Instance(v.Handle())
		if err != nil {
			return "<invalid instance>"
		}
		return fmt.Sprintf("%s@%08x", inst.Class.Name, v.Handle())
	default:
		return "<unknown>"
	}
}

// DebugValue renders v the way the debug built-in does: scalars print
// the same as DisplayValue, but any
// reference prints as a bare handle ("@00000002") instead of recursing
// into the object, so debug output never loops on cyclic structures.
func DebugValue(v Value) string {
	if v.IsReference() {
		return fmt.Sprintf("@%08x", v.Handle())
	}
	return DisplayValue(nil, v)
}
