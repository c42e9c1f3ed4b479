package passstyle

// PassStyle names how a value crosses the boundary.
type PassStyle int

const (
	StyleUndefined PassStyle = iota
	StyleNull
	StyleBoolean
	StyleNumber
	StyleBigInt
	StyleString
	StyleCopyArray
	StyleCopyRecord
	StyleCopyError
	StyleRemotable
	StylePromise
)

var styleNames = [...]string{
	StyleUndefined:  "undefined",
	StyleNull:       "null",
	StyleBoolean:    "boolean",
	StyleNumber:     "number",
	StyleBigInt:     "bigint",
	StyleString:     "string",
	StyleCopyArray:  "copyArray",
	StyleCopyRecord: "copyRecord",
	StyleCopyError:  "copyError",
	StyleRemotable:  "remotable",
	StylePromise:    "promise",
}

func (s PassStyle) String() string {
	if s >= 0 && int(s) < len(styleNames) {
		return styleNames[s]
	}
	return "unknown"
}

// IsCapability reports whether values of this style travel as slots.
func (s PassStyle) IsCapability() bool {
	return s == StyleRemotable || s == StylePromise
}
