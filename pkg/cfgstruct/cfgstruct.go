// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cfgstruct binds configuration structs to command line flags.
package cfgstruct

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/pflag"
)

// Bind registers a flag for every leaf field of config, which must be a
// pointer to a struct. Nested structs contribute a dotted prefix derived
// from the field name. The `help` tag becomes the flag usage and the
// `default` tag the flag default.
func Bind(flags *pflag.FlagSet, config interface{}) {
	ptr := reflect.ValueOf(config)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("invalid config type: %T, expected pointer to struct", config))
	}
	bind(flags, ptr.Elem(), "")
}

func bind(flags *pflag.FlagSet, value reflect.Value, prefix string) {
	for i := 0; i < value.NumField(); i++ {
		field := value.Type().Field(i)
		fieldValue := value.Field(i)
		name := prefix + hyphenate(field.Name)

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			bind(flags, fieldValue, name+".")
			continue
		}

		help := field.Tag.Get("help")
		def := field.Tag.Get("default")

		switch ptr := fieldValue.Addr().Interface().(type) {
		case *string:
			flags.StringVar(ptr, name, def, help)
		case *bool:
			flags.BoolVar(ptr, name, parseBool(name, def), help)
		case *int:
			flags.IntVar(ptr, name, int(parseInt(name, def)), help)
		case *int64:
			flags.Int64Var(ptr, name, parseInt(name, def), help)
		case *float64:
			flags.Float64Var(ptr, name, parseFloat(name, def), help)
		case *time.Duration:
			flags.DurationVar(ptr, name, parseDuration(name, def), help)
		case *[]string:
			var defs []string
			if def != "" {
				defs = strings.Split(def, ",")
			}
			flags.StringSliceVar(ptr, name, defs, help)
		default:
			panic(fmt.Sprintf("invalid field type %s for flag %q", field.Type, name))
		}
	}
}

func parseBool(name, def string) bool {
	if def == "" {
		return false
	}
	val, err := strconv.ParseBool(def)
	if err != nil {
		panic(fmt.Sprintf("invalid bool default for %q: %q", name, def))
	}
	return val
}

func parseInt(name, def string) int64 {
	if def == "" {
		return 0
	}
	val, err := strconv.ParseInt(def, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid integer default for %q: %q", name, def))
	}
	return val
}

func parseFloat(name, def string) float64 {
	if def == "" {
		return 0
	}
	val, err := strconv.ParseFloat(def, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid float default for %q: %q", name, def))
	}
	return val
}

func parseDuration(name, def string) time.Duration {
	if def == "" {
		return 0
	}
	val, err := time.ParseDuration(def)
	if err != nil {
		panic(fmt.Sprintf("invalid duration default for %q: %q", name, def))
	}
	return val
}

// hyphenate converts a Go field name to a kebab-case flag segment.
// Digits stick to the word they follow, so GatewayS3AccessKeyID becomes
// gateway-s3-access-key-id.
func hyphenate(name string) string {
	var out strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				out.WriteRune('-')
			}
		}
		out.WriteRune(unicode.ToLower(r))
	}
	return out.String()
}
