package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"

	"salechain/crypto"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testAddrString(fill byte) string {
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(raw).String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
ListenAddress = ":8645"
DataDir = "/tmp/saled"

[Sale]
OpeningTime = 1000000
ClosingTime = 2000000
RateWei = "100"
BonusMultiplier = "1000"
GoalWei = "1000"
Owner = "`+testAddrString(0x01)+`"
Wallet = "`+testAddrString(0x02)+`"
TokenVault = "`+testAddrString(0x03)+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	params, err := cfg.Validate()
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if params.OpeningTime != 1000000 || params.ClosingTime != 2000000 {
		t.Fatalf("window mismatch: %+v", params)
	}
	if !params.Rate.Eq(uint256.NewInt(100)) || !params.Goal.Eq(uint256.NewInt(1000)) {
		t.Fatalf("amounts not decoded: rate=%s goal=%s", params.Rate, params.Goal)
	}
}

func TestValidateRejectsZeroGoal(t *testing.T) {
	path := writeConfig(t, `
[Sale]
OpeningTime = 1000000
ClosingTime = 2000000
RateWei = "100"
BonusMultiplier = "1000"
GoalWei = "0"
Owner = "`+testAddrString(0x01)+`"
Wallet = "`+testAddrString(0x02)+`"
TokenVault = "`+testAddrString(0x03)+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected zero goal rejection")
	}
}

func TestValidateRejectsInvertedWindow(t *testing.T) {
	path := writeConfig(t, `
[Sale]
OpeningTime = 2000000
ClosingTime = 1000000
RateWei = "100"
BonusMultiplier = "1000"
GoalWei = "1000"
Owner = "`+testAddrString(0x01)+`"
Wallet = "`+testAddrString(0x02)+`"
TokenVault = "`+testAddrString(0x03)+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected inverted window rejection")
	}
}
