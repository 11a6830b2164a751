package models

import "strings"

type Address struct {
	Street      string `json:"street"`
	Landmark    string `json:"landmark,omitempty"`
	City        string `json:"city"`
	FullAddress string `json:"fullAddress"`
}

// NewAddress trims its inputs and derives FullAddress.
func NewAddress(street, landmark, city string) Address {
	a := Address{
		Street:   strings.TrimSpace(street),
		Landmark: strings.TrimSpace(landmark),
		City:     strings.TrimSpace(city),
	}
	a.FullAddress = a.Compose()
	return a
}

// Compose builds "street (Near landmark), city".
func (a Address) Compose() string {
	var b strings.Builder
	b.WriteString(a.Street)
	if a.Landmark != "" {
		b.WriteString(" (Near ")
		b.WriteString(a.Landmark)
		b.WriteString(")")
	}
	b.WriteString(", ")
	b.WriteString(a.City)
	return b.String()
}

// Display returns the stored full address, or composes one for records
// saved before FullAddress existed.
func (a Address) Display() string {
	if a.FullAddress != "" {
		return a.FullAddress
	}
	return a.Compose()
}

func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.FullAddress == ""
}
