package program

import (
	"fmt"
	"strconv"
	"strings"
)

// InstructionSize is the exact length of an encoded Instruction: a single
// option byte.
const InstructionSize = 1

// NumOptions is the number of choices on the ballot
const NumOptions = 4

// Option selects which counter a vote increments
type Option uint8

const (
	OptionA Option = iota
	OptionB
	OptionC
	OptionD
)

// Options lists every valid option in order
var Options = [NumOptions]Option{OptionA, OptionB, OptionC, OptionD}

func (o Option) Valid() bool {
	return o < NumOptions
}

func (o Option) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Option(%d)", uint8(o))
	}
	return string(rune('A' + o))
}

// ParseOption accepts either the letter of an option (case insensitive) or
// its index.
func ParseOption(s string) (Option, error) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		c := strings.ToUpper(s)[0]
		if c >= 'A' && c < 'A'+NumOptions {
			return Option(c - 'A'), nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOption, s)
	}
	opt := Option(n)
	if !opt.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOption, n)
	}
	return opt, nil
}

// Instruction is the payload of a vote. It is not persisted.
type Instruction struct {
	Option Option
}

// Vote builds the encoded instruction for an option
func Vote(opt Option) []byte {
	return Instruction{Option: opt}.Encode()
}

func (i Instruction) Encode() []byte {
	return []byte{byte(i.Option)}
}

// DecodeInstruction requires exactly InstructionSize bytes. The option value
// is not validated here; that happens when the vote is applied.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) != InstructionSize {
		return Instruction{}, fmt.Errorf("%w: instruction must be %d byte, got %d", ErrDecode, InstructionSize, len(data))
	}
	return Instruction{Option: Option(data[0])}, nil
}

// Label names the option a valid instruction votes for. It is used to label
// per-option metrics and reports false for anything that is not a vote.
func Label(data []byte) (string, bool) {
	instruction, err := DecodeInstruction(data)
	if err != nil || !instruction.Option.Valid() {
		return "", false
	}
	return instruction.Option.String(), true
}
