package script

import (
	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/variant"
)

// Scripts see engine data as dynamic values: int64, float64, string,
// []any (ordered list), and map[string]any (keyed table). The mappings
// below round-trip variants and engine objects through that shape.

// Keys used by the keyed-table encodings.
const (
	rangeMinKey = "__min"
	rangeMaxKey = "__max"
	objectType  = "objectType"
	objectPtr   = "objectPointer"
)

// FromVariant renders a variant as a dynamic value: numerics become
// int64/float64, strings become strings, structures ordered lists,
// ranges keyed tables with __min/__max, placeholders empty tables. Null
// renders as nil.
func FromVariant(v variant.Variant) any {
	switch v.Kind() {
	case variant.KindStruct:
		children := v.CompositeValues()
		out := make([]any, len(children))
		for i, c := range children {
			out[i] = FromVariant(c)
		}
		return out

	case variant.KindRange:
		children := v.CompositeValues()
		return map[string]any{
			rangeMinKey: FromVariant(children[0]),
			rangeMaxKey: FromVariant(children[1]),
		}

	case variant.KindPlaceholder:
		return map[string]any{}

	case variant.KindASCIIString:
		s, _ := v.ASCIIString()
		return s

	case variant.KindWideString:
		s, _ := v.WideString()
		return s

	case variant.KindNumeric:
		if f, ok := v.AsFloat64(); ok {
			return f
		}
		if i, ok := v.AsInt64(); ok {
			return i
		}
	}
	return nil
}

// ToVariant interprets a dynamic value as the given variant type. A keyed
// table with __min/__max becomes a range; an empty table or list becomes
// a placeholder when allowBlank is set. Anything inconsistent collapses
// to Null, which callers must test with IsNull before use.
func ToVariant(val any, kind variant.Kind, num variant.NumericType, allowBlank bool) variant.Variant {
	switch v := val.(type) {
	case string:
		if v == "" {
			break
		}
		return variant.FromStringTyped(v, kind)

	case int64:
		if kind != variant.KindNumeric || !num.Valid() {
			break
		}
		return variant.FromInt(v, num)

	case float64:
		if kind != variant.KindNumeric {
			break
		}
		switch num {
		case variant.Float32:
			return variant.FromFloat32(float32(v))
		case variant.Float64:
			return variant.FromFloat64(v)
		}

	case map[string]any:
		minVal, hasMin := v[rangeMinKey]
		maxVal, hasMax := v[rangeMaxKey]
		if hasMin && hasMax {
			if kind != variant.KindNumeric || !num.Valid() {
				return variant.MakeNull()
			}
			min := ToVariant(minVal, variant.KindNumeric, num, false)
			max := ToVariant(maxVal, variant.KindNumeric, num, false)
			return variant.FromVariantRange(min, max)
		}
		if len(v) == 0 && allowBlank && kind == variant.KindNumeric && num.Valid() {
			return variant.MakePlaceholder(num)
		}

	case []any:
		if len(v) == 0 && allowBlank && kind == variant.KindNumeric && num.Valid() {
			return variant.MakePlaceholder(num)
		}
	}

	return variant.MakeNull()
}

// MemoryInfoValue renders a region report as a keyed table.
func MemoryInfoValue(info scanengine.MemoryInformation) map[string]any {
	return map[string]any{
		"start": int64(info.AllocationBase),
		"end":   int64(info.AllocationEnd),
		"size":  int64(info.AllocationSize),

		"isModule":      info.IsModule,
		"isCommitted":   info.IsCommitted,
		"isMirror":      info.IsMirror,
		"isWriteable":   info.IsWriteable,
		"isExecutable":  info.IsExecutable,
		"isMappedImage": info.IsMappedImage,
		"isMapped":      info.IsMapped,
	}
}

// ObjectValue wraps an opaque engine object (a target, a scanner) as a
// keyed table scripts can hold and pass back.
func ObjectValue(typeName string, pointer any) map[string]any {
	return map[string]any{
		objectType: typeName,
		objectPtr:  pointer,
	}
}

// ObjectFromValue unwraps an object reference of the expected type.
func ObjectFromValue(val any, typeName string) (any, bool) {
	table, ok := val.(map[string]any)
	if !ok {
		return nil, false
	}
	name, ok := table[objectType].(string)
	if !ok || name != typeName {
		return nil, false
	}
	ptr, ok := table[objectPtr]
	if !ok {
		return nil, false
	}
	return ptr, true
}
