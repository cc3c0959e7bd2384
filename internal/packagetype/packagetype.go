// Package packagetype enumerates the purchasable package kinds of the marketplace.
package packagetype

import "strings"

type Type string

const (
	Data         Type = "data_package"
	Subscription Type = "subscription_package"
	API          Type = "api_package"
)

// All lists every package type in a stable order.
var All = []Type{Data, Subscription, API}

func (t Type) Valid() bool {
	switch t {
	case Data, Subscription, API:
		return true
	default:
		return false
	}
}

func (t Type) String() string { return string(t) }

// Parse normalizes raw input and reports whether it names a known type.
func Parse(raw string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	return t, t.Valid()
}
