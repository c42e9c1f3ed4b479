package marshal

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// rawObject is a parsed JSON object that remembers key order. Duplicate
// keys keep their first position and their last value.
type rawObject struct {
	keys []string
	vals map[string]any
}

func newRawObject() *rawObject {
	return &rawObject{vals: make(map[string]any)}
}

func (o *rawObject) set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *rawObject) get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// MaxDepth is the deepest nesting of arrays and objects a body may have.
// It matches the limit of the JSON reader, and Serialize enforces it too.
const MaxDepth = 10000

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// parseBody parses a CapData body into a raw tree of nil, bool, float64,
// string, []any and *rawObject.
func parseBody(body string) (any, error) {
	iter := jsoniter.ParseString(bodyAPI, body)
	r := &rawReader{}
	tree := r.read(iter, 0)
	if r.tooDeep {
		return nil, fmt.Errorf("%w: %w: body nests deeper than %d", ErrMalformedCapData, ErrTooDeep, MaxDepth)
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, fmt.Errorf("%w: body: %v", ErrMalformedCapData, iter.Error)
	}
	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return nil, fmt.Errorf("%w: body: trailing data", ErrMalformedCapData)
	}
	return tree, nil
}

type rawReader struct {
	tooDeep bool
}

// read reads one value. depth counts the arrays and objects already open.
func (r *rawReader) read(iter *jsoniter.Iterator, depth int) any {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		return iter.ReadString()
	case jsoniter.NumberValue:
		n := string(iter.ReadNumber())
		if !jsonNumber.MatchString(n) {
			iter.ReportError("readRaw", "invalid number "+n)
			return nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			iter.ReportError("readRaw", "invalid number "+n)
		}
		return f
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil
	case jsoniter.BoolValue:
		return iter.ReadBool()
	case jsoniter.ArrayValue:
		if !r.enter(iter, depth) {
			return nil
		}
		arr := []any{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr = append(arr, r.read(it, depth+1))
			return it.Error == nil
		})
		return arr
	case jsoniter.ObjectValue:
		if !r.enter(iter, depth) {
			return nil
		}
		obj := newRawObject()
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			obj.set(key, r.read(it, depth+1))
			return it.Error == nil
		})
		return obj
	default:
		iter.ReportError("readRaw", "unexpected token")
		return nil
	}
}

func (r *rawReader) enter(iter *jsoniter.Iterator, depth int) bool {
	if depth < MaxDepth {
		return true
	}
	r.tooDeep = true
	iter.ReportError("readRaw", "exceeded max depth")
	return false
}
