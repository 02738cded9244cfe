package router

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrMissingParam is returned (wrapped) by Bind when a field tagged
// `param:"name,required"` has no bound value.
var ErrMissingParam = errors.New("router: missing required param")

// Bind copies the match's parameters into the struct pointed to by dst.
// Fields opt in with a `param` tag naming the parameter; the "required"
// option makes a missing parameter an error.
//
//	var p struct {
//		ID   int      `param:"id,required"`
//		Path []string `param:"path"`
//	}
//	err := match.Bind(&p)
//
// Supported field kinds are strings, signed and unsigned integers, floats,
// bools and []string, which splits a catch-all value on "/" and drops empty
// parts.
func (m RouteMatch) Bind(dst any) error {
	if dst == nil {
		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer {
		return fmt.Errorf("router: bind target must be a pointer, got %s", v.Kind())
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("router: bind target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("param")
		if !ok || tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		value, ok := m.Params[name]
		if !ok {
			if opts == "required" {
				return fmt.Errorf("%w %q", ErrMissingParam, name)
			}
			continue
		}

		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if err := setField(fv, value); err != nil {
			return fmt.Errorf("router: param %q: %w", name, err)
		}
	}
	return nil
}

// setField parses value into field according to the field's kind.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float %q", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem().Kind())
		}
		// "a//b/c/" -> ["a", "b", "c"]
		var parts []string
		for part := range strings.SplitSeq(value, "/") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}
