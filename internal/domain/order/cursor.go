package order

import (
	"encoding/base64"

	"github.com/go-faster/jx"
)

// cursor is the decoded form of the opaque pagination token: the sort
// descriptor it was issued under, the last row's sort-column value (in its
// string transport form) and that row's sequence number.
type cursor struct {
	Sort  string
	Value string
	Idx   int64
}

// sortDescriptor identifies the (sortBy, order) pair a cursor belongs to.
// A cursor presented under a different pair is rejected as malformed rather
// than silently producing a skewed page.
func sortDescriptor(f SortField, d Direction) string {
	return string(f) + "." + string(d)
}

// encodeCursor serializes c into the opaque transport string. Callers must
// treat the result as opaque and never construct one by hand.
func encodeCursor(c cursor) string {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("s")
	e.Str(c.Sort)
	e.FieldStart("v")
	e.Str(c.Value)
	e.FieldStart("i")
	e.Int64(c.Idx)
	e.ObjEnd()

	return base64.RawURLEncoding.EncodeToString(e.Bytes())
}

// decodeCursor parses an opaque cursor string. Any structural defect, of the
// base64 envelope or the JSON payload, yields ErrMalformedCursor.
func decodeCursor(s string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, ErrMalformedCursor
	}

	var (
		c       cursor
		sawIdx  bool
		sawSort bool
		sawVal  bool
	)
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "s":
			v, err := d.Str()
			if err != nil {
				return err
			}
			c.Sort = v
			sawSort = true
		case "v":
			v, err := d.Str()
			if err != nil {
				return err
			}
			c.Value = v
			sawVal = true
		case "i":
			v, err := d.Int64()
			if err != nil {
				return err
			}
			c.Idx = v
			sawIdx = true
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return cursor{}, ErrMalformedCursor
	}

	if !sawSort || !sawVal || !sawIdx {
		return cursor{}, ErrMalformedCursor
	}
	return c, nil
}
