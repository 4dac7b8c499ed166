// Package genesis seeds the ledger with its initial allocations: contributor
// base-currency balances and the unsold token supply seated in the vault.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/holiman/uint256"

	"salechain/crypto"
	"salechain/state"
)

// AllocSpec is the initial holding of a single address.
type AllocSpec struct {
	BalanceWei string `json:"balanceWei,omitempty"`
	Tokens     string `json:"tokens,omitempty"`
}

// Spec is the on-disk genesis document.
type Spec struct {
	Alloc       map[string]AllocSpec `json:"alloc"`
	TokenVault  string               `json:"tokenVault"`
	VaultSupply string               `json:"vaultSupply"`
}

// Load reads and decodes a genesis document from path.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	spec := &Spec{}
	if err := json.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("genesis: decode %s: %w", path, err)
	}
	return spec, nil
}

// Apply seeds ledger with the spec's allocations. Deterministic: addresses
// are applied in sorted order.
func (s *Spec) Apply(ledger *state.Ledger) error {
	if s == nil || ledger == nil {
		return fmt.Errorf("genesis: nil spec or ledger")
	}
	addrs := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, raw := range addrs {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("genesis: alloc address %q: %w", raw, err)
		}
		alloc := s.Alloc[raw]
		if alloc.BalanceWei != "" {
			amount, err := parseAmount(alloc.BalanceWei)
			if err != nil {
				return fmt.Errorf("genesis: balance for %q: %w", raw, err)
			}
			if err := ledger.Credit(addr.Bytes(), amount); err != nil {
				return err
			}
		}
		if alloc.Tokens != "" {
			amount, err := parseAmount(alloc.Tokens)
			if err != nil {
				return fmt.Errorf("genesis: tokens for %q: %w", raw, err)
			}
			if err := ledger.MintTokens(addr.Bytes(), amount); err != nil {
				return err
			}
		}
	}
	if s.VaultSupply != "" {
		vault, err := crypto.ParseAddress(s.TokenVault)
		if err != nil {
			return fmt.Errorf("genesis: token vault: %w", err)
		}
		supply, err := parseAmount(s.VaultSupply)
		if err != nil {
			return fmt.Errorf("genesis: vault supply: %w", err)
		}
		if err := ledger.MintTokens(vault.Bytes(), supply); err != nil {
			return err
		}
	}
	return nil
}

func parseAmount(s string) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if err := amount.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}
