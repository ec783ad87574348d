package gr

import "fmt"

type Variant int

const (
	Full Variant = iota
	SingleSource
	Potential
)

var variantNames = map[Variant]string{
	Full:         "gr_full",
	SingleSource: "gr",
	Potential:    "gr_potential",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

func (v Variant) valid() bool {
	_, ok := variantNames[v]
	return ok
}

// ParseVariant accepts gr_full, gr and gr_potential.
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown variant %q", ErrInvalidConfiguration, name)
}

// Variants lists every variant in declaration order.
func Variants() []Variant {
	return []Variant{Full, SingleSource, Potential}
}
