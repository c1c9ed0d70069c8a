package valueobjects

import "fmt"

type MethodType string

const (
	MethodTypeCard   MethodType = "card"
	MethodTypeWallet MethodType = "wallet"
)

func NewMethodType(s string) (MethodType, error) {
	t := MethodType(s)
	switch t {
	case MethodTypeCard, MethodTypeWallet:
		return t, nil
	default:
		return "", fmt.Errorf("unknown payment method type: %s", s)
	}
}

func (t MethodType) String() string {
	return string(t)
}
