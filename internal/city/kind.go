// Package city holds the city simulation state: the building catalog,
// placement rules, and the derived metrics. It has no knowledge of
// transport, storage, or rendering.
package city

import "fmt"

// Kind is a building category.
type Kind uint8

const (
	KindNone        Kind = iota // No tool armed
	KindResidential             // Houses; grants population
	KindCommercial              // Shops; grants happiness
	KindIndustrial              // Factories
	KindRoad                    // Connects the city
)

// Kinds lists every placeable kind in catalog order.
var Kinds = [4]Kind{KindResidential, KindCommercial, KindIndustrial, KindRoad}

// Valid reports whether k is one of the placeable kinds.
func (k Kind) Valid() bool {
	return k >= KindResidential && k <= KindRoad
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindResidential:
		return "residential"
	case KindCommercial:
		return "commercial"
	case KindIndustrial:
		return "industrial"
	case KindRoad:
		return "road"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind converts a wire name to a Kind. "none" and "" map to KindNone.
func ParseKind(name string) (Kind, bool) {
	m := map[string]Kind{
		"":            KindNone,
		"none":        KindNone,
		"residential": KindResidential,
		"commercial":  KindCommercial,
		"industrial":  KindIndustrial,
		"road":        KindRoad,
	}
	k, ok := m[name]
	return k, ok
}

// MarshalText encodes the kind by name so it can key JSON objects.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindNone && !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown building kind %q", string(text))
	}
	*k = parsed
	return nil
}
