package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoerceNumber converts a stored value to a float64. Absent, non-numeric,
// NaN and infinite values become 0.
func CoerceNumber(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case primitive.Decimal128:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0
		}
		f = d.InexactFloat64()
	case decimal.Decimal:
		f = n.InexactFloat64()
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceString trims stored strings and renders numbers without trailing zeros.
func CoerceString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return ""
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case primitive.ObjectID:
		return s.Hex()
	default:
		return ""
	}
}

// CoerceTime accepts BSON dates, Go times and RFC 3339 strings.
func CoerceTime(v interface{}) *time.Time {
	var t time.Time
	switch tv := v.(type) {
	case time.Time:
		t = tv
	case primitive.DateTime:
		t = tv.Time()
	case primitive.Timestamp:
		t = time.Unix(int64(tv.T), 0)
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(tv))
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func CoerceInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int64(n)
	default:
		return 0
	}
}

// CoerceID renders ObjectIDs as hex and passes string ids through.
func CoerceID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}

// ToObjectID parses a hex id. Non-hex ids are returned as plain strings so
// lookups against documents with string ids still work.
func ToObjectID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// Amount rounds a decimal back to the float64 stored in documents.
func Amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// Dec lifts a stored float64 into exact decimal arithmetic.
func Dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
