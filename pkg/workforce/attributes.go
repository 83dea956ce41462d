package workforce

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Attributes are the opaque key/value properties of a worker provider,
// e.g. node.os=linux or label=gpu. Only the population policy looks at them.
type Attributes map[string]string

func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

func (a Attributes) Get(key string) (string, bool) {
	value, ok := a[key]
	return value, ok
}

// Fulfills checks if the attributes fulfill the given requirement.
// Attributes fulfill a requirement if every property of the requirement
// is present with the same value.
func (a Attributes) Fulfills(requirement Attributes) bool {
	for key, value := range requirement {
		if actual, ok := a[key]; !ok || actual != value {
			return false
		}
	}
	return true
}

// String returns the properties sorted by key, one key=value per line.
func (a Attributes) String() string {
	data := bytes.Buffer{}
	for _, key := range slices.Sorted(maps.Keys(a)) {
		fmt.Fprintf(&data, "%s=%s\n", key, a[key])
	}
	return data.String()
}

// RequireAttributes returns a provider filter accepting providers whose
// attributes fulfill the requirement.
func RequireAttributes(requirement Attributes) ProviderFilter {
	requirement = requirement.Clone()
	return func(attributes Attributes) (bool, error) {
		return attributes.Fulfills(requirement), nil
	}
}

// UniqueBy returns a uniqueness filter that treats providers with equal
// values for all of the given keys as the same logical provider. Missing
// keys hash as empty values.
func UniqueBy(keys ...string) UniquenessFilter {
	keys = slices.Clone(keys)
	return func(attributes Attributes) (string, error) {
		if len(keys) == 0 {
			return "", fmt.Errorf("no uniqueness keys configured")
		}

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+"="+attributes[key])
		}
		return strings.Join(parts, "\x00"), nil
	}
}
