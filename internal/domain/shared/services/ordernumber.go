package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/postline-io/postline/internal/shared/biztime"
)

type OrderNumberGenerator interface {
	Generate(prefix string) string
}

type DefaultOrderNumberGenerator struct{}

func NewOrderNumberGenerator() OrderNumberGenerator {
	return &DefaultOrderNumberGenerator{}
}

// Generate produces an order number like PAY20260115093042a1b2c3.
// The random suffix keeps numbers unique under concurrent creation.
func (g *DefaultOrderNumberGenerator) Generate(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s%s%s",
		prefix,
		biztime.NowUTC().Format("20060102150405"),
		suffix,
	)
}
