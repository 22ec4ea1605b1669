package payout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one = decimal.NewFromInt(1)
)

// Calculator calcula o payout de uma aposta com a margem da casa (house edge) configurada.
//
// O multiplicador justo (1-p)/p é descontado por (1-houseEdge), garantindo à casa
// uma margem esperada positiva proporcional ao edge para qualquer p.
type Calculator struct {
	houseEdge decimal.Decimal
}

// Quote é o resultado do cálculo para um par (stake, probabilidade)
type Quote struct {
	Multiplier decimal.Decimal
	Payout     decimal.Decimal // arredondado em 2 casas
}

// NewCalculator valida o house edge, que precisa estar em [0,1)
func NewCalculator(houseEdge decimal.Decimal) (*Calculator, error) {
	if houseEdge.IsNegative() || houseEdge.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("house edge %s outside [0,1)", houseEdge)
	}
	return &Calculator{houseEdge: houseEdge}, nil
}

// ParseHouseEdge é o atalho usado pelo main a partir da config (string)
func ParseHouseEdge(raw string) (*Calculator, error) {
	edge, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse house edge %q: %w", raw, err)
	}
	return NewCalculator(edge)
}

func (c *Calculator) HouseEdge() decimal.Decimal { return c.houseEdge }

// Quote assume stake > 0 e 0 < p < 1 (validados pelo chamador)
func (c *Calculator) Quote(stake, winProbability decimal.Decimal) Quote {
	multiplier := one.Sub(winProbability).
		Div(winProbability).
		Mul(one.Sub(c.houseEdge))

	return Quote{
		Multiplier: multiplier,
		Payout:     stake.Mul(multiplier).Round(2),
	}
}

// Roll sorteia o resultado: vence quando o draw uniforme em [0,1) fica abaixo de p.
// A probabilidade informada é usada sem ajuste; o edge só afeta o multiplicador.
func (c *Calculator) Roll(src RandomSource, winProbability decimal.Decimal) bool {
	draw := decimal.NewFromFloat(src.Float64())
	return draw.LessThan(winProbability)
}
