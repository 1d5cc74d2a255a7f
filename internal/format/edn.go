package format

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// WriteEDN renders v as EDN. Values go through their JSON encoding first, so json tags
// decide field names; object keys become kebab-case keywords ("parentId" -> :parent-id).
func WriteEDN(w io.Writer, v any, pretty bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	ew := &ednWriter{pretty: pretty}
	ew.value(x, 0)
	ew.buf.WriteByte('\n')
	_, err = w.Write(ew.buf.Bytes())
	return err
}

type ednWriter struct {
	buf    bytes.Buffer
	pretty bool
}

func (ew *ednWriter) value(v any, depth int) {
	switch x := v.(type) {
	case nil:
		ew.buf.WriteString("nil")
	case bool:
		ew.buf.WriteString(strconv.FormatBool(x))
	case json.Number:
		ew.buf.WriteString(x.String())
	case string:
		ew.buf.WriteString(strconv.Quote(x))
	case []any:
		ew.buf.WriteByte('[')
		for i, it := range x {
			ew.sep(i, depth+1)
			ew.value(it, depth+1)
		}
		ew.close(len(x), depth, ']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ew.buf.WriteByte('{')
		for i, k := range keys {
			ew.sep(i, depth+1)
			ew.buf.WriteString(keyword(k))
			ew.buf.WriteByte(' ')
			ew.value(x[k], depth+1)
		}
		ew.close(len(keys), depth, '}')
	default:
		ew.buf.WriteString(strconv.Quote(strings.TrimSpace(string(mustJSON(x)))))
	}
}

func (ew *ednWriter) sep(i, depth int) {
	switch {
	case ew.pretty:
		ew.buf.WriteByte('\n')
		ew.buf.WriteString(strings.Repeat("  ", depth))
	case i > 0:
		ew.buf.WriteByte(' ')
	}
}

func (ew *ednWriter) close(n, depth int, delim byte) {
	if ew.pretty && n > 0 {
		ew.buf.WriteByte('\n')
		ew.buf.WriteString(strings.Repeat("  ", depth))
	}
	ew.buf.WriteByte(delim)
}

// keyword turns a JSON key into an EDN keyword: camelCase becomes kebab-case and
// characters EDN does not allow in symbols become '-'.
func keyword(k string) string {
	var b strings.Builder
	b.WriteByte(':')
	prevLower := false
	for _, r := range strings.TrimSpace(k) {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("*+!-_?.<>=", r):
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			b.WriteByte('-')
			prevLower = false
		}
	}
	return b.String()
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
