package midi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned when an address field is out of range.
var ErrInvalidAddress = errors.New("invalid MIDI address")

// Undefined marks a bank select byte that is not set.
const Undefined = -1

// BankSelectMethod tells which bank select bytes a synth evaluates before a Program Change.
type BankSelectMethod int

const (
	MethodUndefined BankSelectMethod = iota
	MethodMSBLSB
	MethodMSBOnly
	MethodLSBOnly
	MethodPCOnly
)

var methodNames = map[BankSelectMethod]string{
	MethodUndefined: "UNDEFINED",
	MethodMSBLSB:    "MSB_LSB",
	MethodMSBOnly:   "MSB_ONLY",
	MethodLSBOnly:   "LSB_ONLY",
	MethodPCOnly:    "PC_ONLY",
}

func (m BankSelectMethod) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("BankSelectMethod(%d)", int(m))
}

// ParseBankSelectMethod parses a method name. The empty string is MethodUndefined.
func ParseBankSelectMethod(s string) (BankSelectMethod, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return MethodUndefined, nil
	}
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return MethodUndefined, fmt.Errorf("%w: unknown bank select method %q", ErrInvalidAddress, s)
}

// Address is how a patch is selected on the wire: a program change plus
// optional bank select bytes. Address values are immutable.
type Address struct {
	pc     int
	msb    int
	lsb    int
	method BankSelectMethod
}

// NewAddress validates and builds an Address. msb and lsb accept Undefined.
func NewAddress(pc, msb, lsb int, method BankSelectMethod) (Address, error) {
	if pc < 0 || pc > 127 {
		return Address{}, fmt.Errorf("%w: program change %d", ErrInvalidAddress, pc)
	}
	if msb < Undefined || msb > 127 {
		return Address{}, fmt.Errorf("%w: bank MSB %d", ErrInvalidAddress, msb)
	}
	if lsb < Undefined || lsb > 127 {
		return Address{}, fmt.Errorf("%w: bank LSB %d", ErrInvalidAddress, lsb)
	}
	if _, ok := methodNames[method]; !ok {
		return Address{}, fmt.Errorf("%w: bank select method %d", ErrInvalidAddress, int(method))
	}
	return Address{pc: pc, msb: msb, lsb: lsb, method: method}, nil
}

// MustAddress is NewAddress for static tables; it panics on invalid input.
func MustAddress(pc, msb, lsb int, method BankSelectMethod) Address {
	a, err := NewAddress(pc, msb, lsb, method)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) ProgramChange() int       { return a.pc }
func (a Address) BankMSB() int             { return a.msb }
func (a Address) BankLSB() int             { return a.lsb }
func (a Address) Method() BankSelectMethod { return a.method }

// IsFullyDefined reports whether every byte the method needs is set.
func (a Address) IsFullyDefined() bool {
	switch a.method {
	case MethodMSBLSB:
		return a.msb >= 0 && a.lsb >= 0
	case MethodMSBOnly:
		return a.msb >= 0
	case MethodLSBOnly:
		return a.lsb >= 0
	case MethodPCOnly:
		return true
	}
	return false
}

// WithBank returns a copy of a with undefined bank fields replaced by the given defaults.
func (a Address) WithBank(msb, lsb int, method BankSelectMethod) (Address, error) {
	if a.msb == Undefined {
		a.msb = msb
	}
	if a.lsb == Undefined {
		a.lsb = lsb
	}
	if a.method == MethodUndefined {
		a.method = method
	}
	return NewAddress(a.pc, a.msb, a.lsb, a.method)
}

// AddressKey is a comparable form of an Address that keeps only the fields
// its method evaluates. Two addresses are Equal iff their keys are equal.
type AddressKey struct {
	PC     int
	MSB    int
	LSB    int
	Method BankSelectMethod
}

// Key returns the normalised comparable form of a.
func (a Address) Key() AddressKey {
	k := AddressKey{PC: a.pc, MSB: Undefined, LSB: Undefined, Method: a.method}
	switch a.method {
	case MethodMSBLSB, MethodUndefined:
		k.MSB, k.LSB = a.msb, a.lsb
	case MethodMSBOnly:
		k.MSB = a.msb
	case MethodLSBOnly:
		k.LSB = a.lsb
	}
	return k
}

// Equal compares program change, method, and the bank bytes relevant to the method.
func (a Address) Equal(b Address) bool {
	return a.Key() == b.Key()
}

func (a Address) String() string {
	return fmt.Sprintf("[pc=%d msb=%d lsb=%d %s]", a.pc, a.msb, a.lsb, a.method)
}
