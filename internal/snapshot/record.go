package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/units"
)

var jsonNull = []byte("null")

// record is one ledger tuple. Gateways return either a JSON object keyed by
// field name or a positional array in contract declaration order; record
// hides the difference behind field lookups.
type record struct {
	path   string
	fields []string
	named  map[string]json.RawMessage
	pos    []json.RawMessage
}

func newRecord(path string, raw json.RawMessage, fields []string) (record, error) {
	r := record{path: path, fields: fields}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return r, malformed(path, "empty record")
	}
	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &r.named); err != nil {
			return r, malformed(path, "invalid object: %v", err)
		}
	case '[':
		if err := json.Unmarshal(raw, &r.pos); err != nil {
			return r, malformed(path, "invalid tuple: %v", err)
		}
		if len(r.pos) < len(fields) {
			return r, malformed(path, "tuple has %d fields, want %d", len(r.pos), len(fields))
		}
	default:
		return r, malformed(path, "expected object or tuple")
	}
	return r, nil
}

// raw returns the field at index i of the record's field list.
// A missing or null field is malformed.
func (r record) raw(i int) (json.RawMessage, string, error) {
	name := r.fields[i]
	where := r.path + "." + name

	var v json.RawMessage
	if r.named != nil {
		v = r.named[name]
	} else {
		v = r.pos[i]
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, jsonNull) {
		return nil, where, malformed(where, "missing")
	}
	return v, where, nil
}

// has reports whether the record carries a non-null value for field i.
func (r record) has(i int) bool {
	_, _, err := r.raw(i)
	return err == nil
}

func (r record) str(i int) (string, error) {
	v, where, err := r.raw(i)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", malformed(where, "want string")
	}
	return s, nil
}

func (r record) boolean(i int) (bool, error) {
	v, where, err := r.raw(i)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, malformed(where, "want bool")
	}
	return b, nil
}

func (r record) bigInt(i int) (*big.Int, error) {
	v, where, err := r.raw(i)
	if err != nil {
		return nil, err
	}
	n, err := parseBigInt(v)
	if err != nil {
		return nil, malformed(where, "%v", err)
	}
	return n, nil
}

func (r record) int64(i int) (int64, error) {
	n, err := r.bigInt(i)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Sign() < 0 {
		return 0, malformed(r.path+"."+r.fields[i], "%s out of range", n)
	}
	return n.Int64(), nil
}

// amount reads a wei field and converts it to a decimal amount.
func (r record) amount(i int) (decimal.Decimal, error) {
	n, err := r.bigInt(i)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := units.ToDecimal(n)
	if err != nil {
		return decimal.Zero, malformed(r.path+"."+r.fields[i], "%v", err)
	}
	return d, nil
}

// unixTime reads a unix-seconds field. Zero maps to the zero time.
func (r record) unixTime(i int) (time.Time, error) {
	secs, err := r.int64(i)
	if err != nil {
		return time.Time{}, err
	}
	if secs == 0 {
		return time.Time{}, nil
	}
	return time.Unix(secs, 0).UTC(), nil
}

// bigNumber is the object shape ethers-style gateways use for uint256 values.
type bigNumber struct {
	Type string `json:"type"`
	Hex  string `json:"hex"`
}

// parseBigInt accepts a JSON integer, a decimal or 0x-hex string, or a
// {"type":"BigNumber","hex":"0x.."} object.
func parseBigInt(v json.RawMessage) (*big.Int, error) {
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, err
		}
		return parseIntString(s)
	case '{':
		var bn bigNumber
		if err := json.Unmarshal(v, &bn); err != nil {
			return nil, fmt.Errorf("invalid big number: %w", err)
		}
		if bn.Hex == "" {
			return nil, fmt.Errorf("big number without hex")
		}
		return parseIntString(bn.Hex)
	default:
		return parseIntString(string(v))
	}
}

func parseIntString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	n := new(big.Int)
	var ok bool
	if hex, found := strings.CutPrefix(strings.ToLower(s), "0x"); found {
		_, ok = n.SetString(hex, 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok || s == "" {
		return nil, fmt.Errorf("want integer, got %q", s)
	}
	return n, nil
}
