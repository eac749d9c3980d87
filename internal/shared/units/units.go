// Package units converte entre wei (uint256) e strings decimais em ether.
package units

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const EtherDecimals = 18

// ParseEther converte "1.5" em 1500000000000000000 wei. Frações abaixo de 1 wei são rejeitadas.
func ParseEther(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse ether %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse ether %q: negative amount", s)
	}
	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("parse ether %q: more than %d decimals", s, EtherDecimals)
	}
	v, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, fmt.Errorf("parse ether %q: overflows uint256", s)
	}
	return v, nil
}

// MustEther é ParseEther para constantes e testes.
func MustEther(s string) *uint256.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatEther converte wei em string decimal de ether sem zeros à direita.
func FormatEther(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei.ToBig(), -EtherDecimals).String()
}

// ParseWei aceita inteiro decimal ou hex 0x.
func ParseWei(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("parse wei %q: %w", s, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse wei %q: %w", s, err)
	}
	return v, nil
}

// WeiFloat aproxima wei em float64, só para gauges.
func WeiFloat(wei *uint256.Int) float64 {
	if wei == nil {
		return 0
	}
	return decimal.NewFromBigInt(wei.ToBig(), 0).InexactFloat64()
}
