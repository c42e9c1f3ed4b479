package marshal

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/endojs/endo-sub013/passstyle"
)

// DecodeToJustin renders the body of data as a JavaScript-like expression.
// Back-references render as getIbid(i) and slots as getSlotVal(i, iface).
// With indent set the output is spread over lines; otherwise only the
// whitespace needed to keep tokens apart is emitted.
func DecodeToJustin(data CapData, indent bool) (string, error) {
	tree, err := parseBody(data.Body)
	if err != nil {
		return "", err
	}
	var out indenter = &flatIndenter{}
	if indent {
		out = &lineIndenter{}
	}
	j := justin{out: out}
	if err := j.render(tree); err != nil {
		return "", err
	}
	return out.done(), nil
}

var (
	identPattern   = regexp.MustCompile(`^[a-zA-Z]\w*$`)
	badPairPattern = regexp.MustCompile(`^(?:\w\w|<<|>>|\+\+|--|<!|->)$`)
)

type indenter interface {
	open(bracket string)
	line()
	next(token string)
	close(bracket string)
	done() string
}

// flatIndenter emits the minimum whitespace that preserves meaning.
type flatIndenter struct {
	parts []string
}

func (f *flatIndenter) open(bracket string) { f.next(bracket) }
func (f *flatIndenter) line()               {}

func (f *flatIndenter) next(token string) {
	if n := len(f.parts); n > 0 && token != "" {
		last := f.parts[n-1]
		if last != "" && badPairPattern.MatchString(last[len(last)-1:]+token[:1]) {
			f.parts = append(f.parts, " ")
		}
	}
	f.parts = append(f.parts, token)
}

func (f *flatIndenter) close(bracket string) {
	if n := len(f.parts); n > 0 && f.parts[n-1] == "," {
		f.parts = f.parts[:n-1]
	}
	f.parts = append(f.parts, bracket)
}

func (f *flatIndenter) done() string { return strings.Join(f.parts, "") }

// lineIndenter puts each element and property on its own line.
type lineIndenter struct {
	b     strings.Builder
	level int
	// pendingComma is written lazily so the last element has none.
	pendingComma bool
}

func (l *lineIndenter) flushComma() {
	if l.pendingComma {
		l.b.WriteString(",")
		l.pendingComma = false
	}
}

func (l *lineIndenter) afterColon() {
	if strings.HasSuffix(l.b.String(), ":") {
		l.b.WriteString(" ")
	}
}

func (l *lineIndenter) open(bracket string) {
	l.afterColon()
	l.b.WriteString(bracket)
	l.level++
}

func (l *lineIndenter) line() {
	l.flushComma()
	l.b.WriteString("\n")
	l.b.WriteString(strings.Repeat("  ", l.level))
}

func (l *lineIndenter) next(token string) {
	if token == "," {
		l.pendingComma = true
		return
	}
	l.afterColon()
	l.b.WriteString(token)
}

func (l *lineIndenter) close(bracket string) {
	l.pendingComma = false
	l.level--
	l.line()
	l.b.WriteString(bracket)
}

func (l *lineIndenter) done() string { return l.b.String() }

type justin struct {
	out indenter
	// ibids counts the nodes a reviver would have registered so far.
	ibids int
}

func (j *justin) render(raw any) error {
	switch node := raw.(type) {
	case nil:
		j.out.next("null")
	case bool:
		j.out.next(strconv.FormatBool(node))
	case float64:
		j.out.next(formatNumber(node))
	case string:
		j.out.next(quote(node))
	case []any:
		j.ibids++
		if len(node) == 0 {
			j.out.next("[]")
			return nil
		}
		j.out.open("[")
		for _, el := range node {
			j.out.line()
			if err := j.render(el); err != nil {
				return err
			}
			j.out.next(",")
		}
		j.out.close("]")
	case *rawObject:
		if _, tagged := node.get(passstyle.QClass); tagged {
			return j.renderTagged(node)
		}
		j.ibids++
		if len(node.keys) == 0 {
			j.out.next("{}")
			return nil
		}
		j.out.open("{")
		for _, key := range node.keys {
			if err := j.renderProperty(key, node.vals[key]); err != nil {
				return err
			}
		}
		j.out.close("}")
	default:
		return fmt.Errorf("marshal: justin: unexpected node %T", raw)
	}
	return nil
}

func (j *justin) renderProperty(name string, value any) error {
	j.out.line()
	switch {
	case name == "__proto__":
		// {__proto__: x} would set the prototype in JavaScript.
		j.out.next(`["__proto__"]:`)
	case identPattern.MatchString(name):
		j.out.next(name + ":")
	default:
		j.out.next(quote(name) + ":")
	}
	if err := j.render(value); err != nil {
		return err
	}
	j.out.next(",")
	return nil
}

func (j *justin) renderTagged(node *rawObject) error {
	qv, _ := node.get(passstyle.QClass)
	qclass, ok := qv.(string)
	if !ok {
		return fmt.Errorf("%w: @qclass is %T", ErrUnrecognizedTag, qv)
	}

	switch qclass {
	case "undefined", "NaN", "Infinity", "-Infinity":
		j.out.next(qclass)
	case "bigint":
		digits, err := stringField(node, "digits")
		if err != nil {
			return err
		}
		n, ok := new(big.Int).SetString(digits, 10)
		if !ok {
			return fmt.Errorf("%w: invalid bigint digits %q", ErrMalformedCapData, digits)
		}
		j.out.next(n.String() + "n")
	case "ibid":
		raw, _ := node.get("index")
		idx, ok := natIndex(raw)
		if !ok {
			return fmt.Errorf("%w: ibid index %v", ErrMalformedCapData, raw)
		}
		if idx >= j.ibids {
			return fmt.Errorf("%w: %d of %d", ErrIbidOutOfRange, idx, j.ibids)
		}
		j.out.next(fmt.Sprintf("getIbid(%d)", idx))
	case "error":
		name, err := stringField(node, "name")
		if err != nil {
			return err
		}
		if !passstyle.IsErrorConstructor(name) {
			return fmt.Errorf("%w: %q is not an error constructor", ErrMalformedCapData, name)
		}
		message, err := stringField(node, "message")
		if err != nil {
			return err
		}
		j.ibids++
		j.out.next(name + "(" + quote(message) + ")")
	case "slot":
		raw, _ := node.get("index")
		idx, ok := natIndex(raw)
		if !ok {
			return fmt.Errorf("%w: slot index %v", ErrMalformedCapData, raw)
		}
		j.ibids++
		if _, has := node.get("iface"); !has {
			j.out.next(fmt.Sprintf("getSlotVal(%d)", idx))
			return nil
		}
		iface, err := stringField(node, "iface")
		if err != nil {
			return err
		}
		j.out.next(fmt.Sprintf("getSlotVal(%d,%s)", idx, quote(iface)))
	default:
		return fmt.Errorf("%w %q", ErrUnrecognizedTag, qclass)
	}
	return nil
}

// quote renders s as a JSON string literal.
func quote(s string) string {
	out, err := bodyAPI.MarshalToString(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return out
}
