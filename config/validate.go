package config

import (
	"fmt"
	"strings"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okx/vesting/vesting"
)

// ValidationError lists every problem found in the table.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ParseAddress accepts a 0x-prefixed hex address. Mixed-case input must carry
// a valid EIP-55 checksum, the zero address is rejected.
func ParseAddress(s string) (ethcmn.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || !ethcmn.IsHexAddress(s) {
		return ethcmn.Address{}, fmt.Errorf("malformed address %q", s)
	}
	addr := ethcmn.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != s {
		return ethcmn.Address{}, fmt.Errorf("bad checksum for address %q (expected %s)", s, addr.Hex())
	}
	if addr == (ethcmn.Address{}) {
		return ethcmn.Address{}, fmt.Errorf("zero address")
	}
	return addr, nil
}

// ParseAmount parses a decimal token amount in the smallest unit.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("missing amount")
	}
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %v", s, err)
	}
	return amount, nil
}

// Schedules converts and validates the beneficiary rows, in table order.
func (c *Config) Schedules() ([]vesting.Schedule, error) {
	verr := &ValidationError{}
	if len(c.Beneficiaries) == 0 {
		verr.add("beneficiaries: table is empty")
	}

	schedules := make([]vesting.Schedule, 0, len(c.Beneficiaries))
	for i, row := range c.Beneficiaries {
		prefix := fmt.Sprintf("beneficiaries[%d]", i)
		var s vesting.Schedule
		var err error

		if row.Start == nil {
			verr.add("%s.start: missing", prefix)
		} else {
			s.Start = *row.Start
		}
		if row.Revocable == nil {
			verr.add("%s.revocable: missing", prefix)
		} else {
			s.Revocable = *row.Revocable
		}

		if s.Beneficiary, err = ParseAddress(row.Address); err != nil {
			verr.add("%s.address: %v", prefix, err)
		}
		if s.Amount, err = ParseAmount(row.Amount); err != nil {
			verr.add("%s.amount: %v", prefix, err)
		}

		cliffOK, durationOK := true, true
		if s.Cliff, err = ParseSeconds(row.Cliff); err != nil {
			verr.add("%s.cliff: %v", prefix, err)
			cliffOK = false
		}
		if s.Duration, err = ParseSeconds(row.Duration); err != nil {
			verr.add("%s.duration: %v", prefix, err)
			durationOK = false
		} else if s.Duration == 0 {
			verr.add("%s.duration: must be > 0", prefix)
		}
		if s.SlicePeriodSeconds, err = ParseSeconds(row.SlicePeriod); err != nil {
			verr.add("%s.slicePeriod: %v", prefix, err)
		} else if s.SlicePeriodSeconds < 1 {
			verr.add("%s.slicePeriod: must be >= 1 second", prefix)
		}
		if cliffOK && durationOK && s.Cliff > s.Duration {
			verr.add("%s: cliff (%ds) exceeds duration (%ds)", prefix, s.Cliff, s.Duration)
		}

		schedules = append(schedules, s)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return schedules, nil
}

// Distributions converts and validates the initial receivers, in table order.
func (c *Config) Distributions() ([]vesting.Distribution, error) {
	verr := &ValidationError{}
	if len(c.InitialReceivers) == 0 {
		verr.add("initialReceivers: list is empty")
	}

	entries := make([]vesting.Distribution, 0, len(c.InitialReceivers))
	for i, row := range c.InitialReceivers {
		prefix := fmt.Sprintf("initialReceivers[%d]", i)
		var e vesting.Distribution
		var err error
		if e.Receiver, err = ParseAddress(row.Receiver); err != nil {
			verr.add("%s.receiver: %v", prefix, err)
		}
		if e.Amount, err = ParseAmount(row.Amount); err != nil {
			verr.add("%s.amount: %v", prefix, err)
		}
		entries = append(entries, e)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ValidateNetwork checks the settings needed to sign and send.
func (c *Config) ValidateNetwork() error {
	verr := &ValidationError{}
	if strings.TrimSpace(c.Rpc) == "" {
		verr.add("rpc: node endpoint is required (or set %s)", EnvRPC)
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		verr.add("privateKey: signer key is required (set %s)", EnvPrivateKey)
	}
	if _, err := ParseAddress(c.TokenVestingAddress); err != nil {
		verr.add("tokenVestingAddress: %v", err)
	}
	if c.TokenAddress != "" {
		if _, err := ParseAddress(c.TokenAddress); err != nil {
			verr.add("tokenAddress: %v", err)
		}
	}
	if c.GasPriceGwei < 0 {
		verr.add("gasPriceGwei: must not be negative")
	}
	if c.ConfirmTimeout < 0 {
		verr.add("confirmTimeout: must not be negative")
	}
	if c.SubmitInterval < 0 {
		verr.add("submitInterval: must not be negative")
	}
	return verr.orNil()
}

// DuplicateBeneficiaries returns addresses that appear more than once. The
// contract accepts several schedules per beneficiary, so this is only worth a
// warning.
func DuplicateBeneficiaries(schedules []vesting.Schedule) []ethcmn.Address {
	seen := make(map[ethcmn.Address]int, len(schedules))
	var dups []ethcmn.Address
	for _, s := range schedules {
		seen[s.Beneficiary]++
		if seen[s.Beneficiary] == 2 {
			dups = append(dups, s.Beneficiary)
		}
	}
	return dups
}
