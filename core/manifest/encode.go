package manifest

import (
	"bytes"
	"encoding/json"
	"sort"
)

// objectWriter emits a JSON object with a caller-chosen key order. Values are
// encoded without HTML escaping so Greek text and punctuation stay readable.
type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) key(k string) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.n++
	w.buf.Write(encodeValue(k, &w.err))
	w.buf.WriteByte(':')
}

func (w *objectWriter) field(k string, v any) {
	if w.err != nil {
		return
	}
	w.key(k)
	w.buf.Write(encodeValue(v, &w.err))
}

func (w *objectWriter) raw(k string, v json.RawMessage) {
	if w.err != nil {
		return
	}
	w.key(k)
	w.buf.Write(v)
}

func (w *objectWriter) extras(extra map[string]json.RawMessage) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.raw(k, extra[k])
	}
}

func (w *objectWriter) close() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}

func encodeValue(v any, errp *error) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		if *errp == nil {
			*errp = err
		}
		return nil
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
