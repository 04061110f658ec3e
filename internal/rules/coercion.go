// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solatis/ordergate/internal/types"
)

/*
 * Type coercion for condition evaluation.
 *
 * Every comparison happens between two FieldValues of the field's declared
 * type. FieldValue is a closed variant (Text | Number | Date | Enumerated);
 * there is no "any" mode, so an operator never sees mixed types.
 *
 * Two entry points:
 *   - Coerce: condition values, always raw strings from the rule editor
 *   - CoerceRecord: record values, whatever the data-access layer produced
 *     (JSON numbers, strings, time.Time, decimals)
 *
 * Null record values are reported through CoercionResult.IsNull instead of
 * an error: missing data never matches but is not a warning either.
 *
 * Type modes:
 *   - NUMBER: strict - decimal strings and numeric types, rejects booleans
 *   - DATE: strict - RFC 3339 instants or bare YYYY-MM-DD dates, UTC
 *   - TEXT: lenient - numbers and booleans format to their text form
 *   - ENUMERATED: strict - strings only
 */

// dateLayouts are tried in order. RFC3339Nano also accepts values without
// fractional seconds.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FieldValue is a typed value of one of the four schema value types.
type FieldValue struct {
	kind types.ValueType
	text string
	num  decimal.Decimal
	date time.Time
}

// TextValue returns a Text FieldValue.
func TextValue(s string) FieldValue { return FieldValue{kind: types.ValueText, text: s} }

// NumberValue returns a Number FieldValue.
func NumberValue(d decimal.Decimal) FieldValue { return FieldValue{kind: types.ValueNumber, num: d} }

// DateValue returns a Date FieldValue normalized to UTC.
func DateValue(t time.Time) FieldValue { return FieldValue{kind: types.ValueDate, date: t.UTC()} }

// EnumeratedValue returns an Enumerated FieldValue.
func EnumeratedValue(s string) FieldValue { return FieldValue{kind: types.ValueEnumerated, text: s} }

// Type reports the variant held by v.
func (v FieldValue) Type() types.ValueType { return v.kind }

// Number returns the decimal held by a Number value.
func (v FieldValue) Number() (decimal.Decimal, bool) {
	return v.num, v.kind == types.ValueNumber
}

// Date returns the instant held by a Date value.
func (v FieldValue) Date() (time.Time, bool) {
	return v.date, v.kind == types.ValueDate
}

// String returns the text representation of v. Contains operates on it.
func (v FieldValue) String() string {
	switch v.kind {
	case types.ValueNumber:
		return v.num.String()
	case types.ValueDate:
		return v.date.Format(time.RFC3339Nano)
	default:
		return v.text
	}
}

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  FieldValue // valid only if !IsNull
	IsNull bool       // true if input was nil
}

// Coerce converts a raw condition value to the field's declared type.
// Returns an error wrapping ErrCoercionFailed for impossible coercions.
func Coerce(raw string, vt types.ValueType) (FieldValue, error) {
	switch vt {
	case types.ValueText:
		return TextValue(strings.TrimSpace(raw)), nil
	case types.ValueEnumerated:
		return EnumeratedValue(strings.TrimSpace(raw)), nil
	case types.ValueNumber:
		return parseNumber(raw)
	case types.ValueDate:
		return parseDate(raw)
	default:
		return FieldValue{}, fmt.Errorf("%w: unknown value type %q", types.ErrCoercionFailed, vt)
	}
}

// CoerceRecord converts a record field value to the field's declared type.
func CoerceRecord(value any, vt types.ValueType) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}

	var (
		fv  FieldValue
		err error
	)
	switch vt {
	case types.ValueNumber:
		fv, err = coerceRecordNumber(value)
	case types.ValueDate:
		fv, err = coerceRecordDate(value)
	case types.ValueText:
		fv, err = coerceRecordText(value)
	case types.ValueEnumerated:
		s, ok := value.(string)
		if !ok {
			err = fmt.Errorf("%w: %T is not an enumerated value", types.ErrCoercionFailed, value)
			break
		}
		fv = EnumeratedValue(strings.TrimSpace(s))
	default:
		err = fmt.Errorf("%w: unknown value type %q", types.ErrCoercionFailed, vt)
	}
	if err != nil {
		return CoercionResult{}, err
	}
	return CoercionResult{Value: fv}, nil
}

// parseNumber accepts integer and decimal strings. Whitespace-only strings
// are not valid numbers.
func parseNumber(raw string) (FieldValue, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return FieldValue{}, fmt.Errorf("%w: empty number", types.ErrCoercionFailed)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return FieldValue{}, fmt.Errorf("%w: %q is not a number", types.ErrCoercionFailed, raw)
	}
	return NumberValue(d), nil
}

func parseDate(raw string) (FieldValue, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateValue(t), nil
		}
	}
	return FieldValue{}, fmt.Errorf("%w: %q is not an ISO-8601 date", types.ErrCoercionFailed, raw)
}

func coerceRecordNumber(value any) (FieldValue, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return NumberValue(v), nil
	case float64:
		return numberFromFloat(v)
	case float32:
		return numberFromFloat(float64(v))
	case int:
		return NumberValue(decimal.NewFromInt(int64(v))), nil
	case int32:
		return NumberValue(decimal.NewFromInt32(v)), nil
	case int64:
		return NumberValue(decimal.NewFromInt(v)), nil
	case json.Number:
		return parseNumber(v.String())
	case string:
		return parseNumber(v)
	case bool:
		// Strict mode: no boolean-to-number coercion
		return FieldValue{}, fmt.Errorf("%w: boolean is not a number", types.ErrCoercionFailed)
	default:
		return FieldValue{}, fmt.Errorf("%w: %T is not a number", types.ErrCoercionFailed, value)
	}
}

func numberFromFloat(f float64) (FieldValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FieldValue{}, fmt.Errorf("%w: %v is not a finite number", types.ErrCoercionFailed, f)
	}
	return NumberValue(decimal.NewFromFloat(f)), nil
}

func coerceRecordDate(value any) (FieldValue, error) {
	switch v := value.(type) {
	case time.Time:
		return DateValue(v), nil
	case *time.Time:
		if v == nil {
			return FieldValue{}, fmt.Errorf("%w: nil time", types.ErrCoercionFailed)
		}
		return DateValue(*v), nil
	case string:
		return parseDate(v)
	default:
		return FieldValue{}, fmt.Errorf("%w: %T is not a date", types.ErrCoercionFailed, value)
	}
}

// coerceRecordText converts scalars to their text representation.
func coerceRecordText(value any) (FieldValue, error) {
	switch v := value.(type) {
	case string:
		return TextValue(v), nil
	case float64:
		return TextValue(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case int:
		return TextValue(strconv.Itoa(v)), nil
	case int64:
		return TextValue(strconv.FormatInt(v, 10)), nil
	case json.Number:
		return TextValue(v.String()), nil
	case decimal.Decimal:
		return TextValue(v.String()), nil
	case bool:
		return TextValue(strconv.FormatBool(v)), nil
	case fmt.Stringer:
		return TextValue(v.String()), nil
	default:
		return FieldValue{}, fmt.Errorf("%w: %T has no text form", types.ErrCoercionFailed, value)
	}
}
