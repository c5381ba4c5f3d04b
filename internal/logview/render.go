package logview

import (
	"bytes"
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"io"
	"strings"

	"admin-history/internal/metrics"

	"go.uber.org/zap"
)

const tableOpen = `<table border="1">`

// Render shows a stored change message. Text starting with "[" is parsed as JSON and laid
// out as nested HTML tables; anything else, or JSON that fails to parse, is shown as
// escaped text.
func Render(text string) template.HTML {
	if !strings.HasPrefix(text, "[") {
		return template.HTML(html.EscapeString(text))
	}
	n, err := parse(text)
	if err != nil {
		metrics.RenderFallbacks.Inc()
		zap.L().Debug("change message is not valid JSON", zap.Error(err))
		return template.HTML(html.EscapeString(text))
	}
	var buf bytes.Buffer
	n.write(&buf)
	return template.HTML(buf.String())
}

type kind int

const (
	scalarNode kind = iota
	objectNode
	arrayNode
)

// node is a decoded JSON value that keeps object keys in document order.
type node struct {
	kind   kind
	text   string
	keys   []string
	values []*node
}

func parse(text string) (*node, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	n, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("logview: trailing data after change message")
	}
	return n, nil
}

func decode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &node{kind: objectNode}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				v, err := decode(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.values = append(n.values, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &node{kind: arrayNode}
			for dec.More() {
				v, err := decode(dec)
				if err != nil {
					return nil, err
				}
				n.values = append(n.values, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, errors.New("logview: unexpected delimiter")
	case string:
		return &node{text: t}, nil
	case json.Number:
		return &node{text: t.String()}, nil
	case bool:
		if t {
			return &node{text: "true"}, nil
		}
		return &node{text: "false"}, nil
	case nil:
		return &node{text: "null"}, nil
	}
	return nil, errors.New("logview: unexpected token")
}

func (n *node) write(buf *bytes.Buffer) {
	switch n.kind {
	case scalarNode:
		buf.WriteString(html.EscapeString(n.text))
	case objectNode:
		if len(n.keys) == 0 {
			return
		}
		buf.WriteString(tableOpen)
		for i, k := range n.keys {
			buf.WriteString("<tr><th>")
			buf.WriteString(html.EscapeString(k))
			buf.WriteString("</th><td>")
			n.values[i].write(buf)
			buf.WriteString("</td></tr>")
		}
		buf.WriteString("</table>")
	case arrayNode:
		if len(n.values) == 0 {
			return
		}
		if headers, ok := n.columns(); ok {
			n.writeClubbed(buf, headers)
			return
		}
		buf.WriteString("<ul>")
		for _, v := range n.values {
			buf.WriteString("<li>")
			v.write(buf)
			buf.WriteString("</li>")
		}
		buf.WriteString("</ul>")
	}
}

// columns reports the shared keys of an array whose items are all objects with the same
// keys in the same order. Such arrays are drawn as one table with a header row.
func (n *node) columns() ([]string, bool) {
	first := n.values[0]
	if first.kind != objectNode || len(first.keys) == 0 {
		return nil, false
	}
	for _, v := range n.values[1:] {
		if v.kind != objectNode || len(v.keys) != len(first.keys) {
			return nil, false
		}
		for i, k := range v.keys {
			if k != first.keys[i] {
				return nil, false
			}
		}
	}
	return first.keys, true
}

func (n *node) writeClubbed(buf *bytes.Buffer, headers []string) {
	buf.WriteString(tableOpen)
	buf.WriteString("<thead><tr>")
	for _, h := range headers {
		buf.WriteString("<th>")
		buf.WriteString(html.EscapeString(h))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, row := range n.values {
		buf.WriteString("<tr>")
		for _, v := range row.values {
			buf.WriteString("<td>")
			v.write(buf)
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table>")
}
