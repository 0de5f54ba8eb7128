package enums

import "fmt"

// CashDeclarationType distinguishes opening floats from closing counts.
type CashDeclarationType string

const (
	CashDeclarationTypeOpening CashDeclarationType = "opening"
	CashDeclarationTypeClosing CashDeclarationType = "closing"
)

var validCashDeclarationTypes = []CashDeclarationType{
	CashDeclarationTypeOpening,
	CashDeclarationTypeClosing,
}

// String implements fmt.Stringer.
func (c CashDeclarationType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CashDeclarationType.
func (c CashDeclarationType) IsValid() bool {
	for _, candidate := range validCashDeclarationTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCashDeclarationType converts raw input into a CashDeclarationType.
func ParseCashDeclarationType(value string) (CashDeclarationType, error) {
	for _, candidate := range validCashDeclarationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash declaration type %q", value)
}
