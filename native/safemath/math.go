// Package safemath provides checked arithmetic over 256-bit unsigned
// integers. Every operation either returns an exact result or an error; no
// result ever silently wraps.
package safemath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("safemath: overflow")
	ErrUnderflow      = errors.New("safemath: underflow")
	ErrDivisionByZero = errors.New("safemath: division by zero")
)

// Add returns a+b or ErrOverflow if the sum wraps.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow when b exceeds a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if b.Gt(a) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// Mul returns a*b or ErrOverflow if the product wraps. A zero multiplicand
// short-circuits to zero without touching b.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	if a.IsZero() {
		return uint256.NewInt(0), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product, nil
}

// Div returns the truncating quotient a/b or ErrDivisionByZero when b is zero.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}
