package gvm

import "os"

// fileModule builds the file built-in: read_to_string and read_to_bytes,
// each taking a path (a heap string) and returning the file's contents
// as a heap string or a byte array respectively. Host I/O failures
// surface as IoError rather than panicking, via wrapIO.
func fileModule() *Module {
	m := newModule("file")

	m.addFunction(&Function{Name: "read_to_string", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		path, err := requireString(i.Heap, args[0])
		if err != nil {
			return Null, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Null, wrapIO(err, "read "+path)
		}
		return StringValue(i.Heap.AllocString(string(data))), nil
	}})

	m.addFunction(&Function{Name: "read_to_bytes", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		path, err := requireString(i.Heap, args[0])
		if err != nil {
			return Null, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Null, wrapIO(err, "read "+path)
		}
		elems := make([]Value, len(data))
		for idx, b := range data {
			elems[idx] = ByteValue(b)
		}
		return ArrayValue(i.Heap.AllocArray(elems)), nil
	}})

	return m
}

func requireString(h *Heap, v Value) (string, error) {
	if v.Tag() != TagString {
		return "", newErrf(TypeMismatch, "expected string, got %s", v.Tag())
	}
	return h.String(v.Handle())
}
