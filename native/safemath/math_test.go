package safemath

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

var maxUint256 = new(uint256.Int).Sub(uint256.NewInt(0), uint256.NewInt(1))

func TestAdd(t *testing.T) {
	sum, err := Add(uint256.NewInt(2), uint256.NewInt(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Eq(uint256.NewInt(5)) {
		t.Fatalf("expected 5, got %s", sum)
	}
}

func TestAddOverflow(t *testing.T) {
	if _, err := Add(maxUint256, uint256.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSub(t *testing.T) {
	diff, err := Sub(uint256.NewInt(10), uint256.NewInt(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diff.Eq(uint256.NewInt(6)) {
		t.Fatalf("expected 6, got %s", diff)
	}
}

func TestSubUnderflow(t *testing.T) {
	if _, err := Sub(uint256.NewInt(4), uint256.NewInt(10)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestMulZeroShortCircuits(t *testing.T) {
	product, err := Mul(uint256.NewInt(0), maxUint256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !product.IsZero() {
		t.Fatalf("expected zero, got %s", product)
	}
}

func TestMul(t *testing.T) {
	product, err := Mul(uint256.NewInt(7), uint256.NewInt(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !product.Eq(uint256.NewInt(42)) {
		t.Fatalf("expected 42, got %s", product)
	}
}

func TestMulOverflow(t *testing.T) {
	if _, err := Mul(maxUint256, uint256.NewInt(2)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestDiv(t *testing.T) {
	quot, err := Div(uint256.NewInt(7), uint256.NewInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quot.Eq(uint256.NewInt(3)) {
		t.Fatalf("expected truncating division, got %s", quot)
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(uint256.NewInt(7), uint256.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}
