package program

import (
	"encoding/binary"
	"fmt"
	"math"
)

// RecordSize is the exact length of an encoded Record.
//
// The format is:
// 1 byte initialized flag (0x00 or 0x01)
// 8 bytes option A votes
// 8 bytes option B votes
// 8 bytes option C votes
// 8 bytes option D votes
//
// All integers are little endian. There is no padding or length prefix.
const RecordSize = 1 + NumOptions*8

// Record is the tally persisted in a ballot account. Counters only ever
// increase and at most one of them changes per invocation.
type Record struct {
	Initialized bool
	OptionA     uint64
	OptionB     uint64
	OptionC     uint64
	OptionD     uint64
}

// NewRecord returns a freshly initialized record with every counter at zero
func NewRecord() Record {
	return Record{Initialized: true}
}

// Count returns the number of votes recorded for an option. ok is false if
// the option is not valid.
func (r Record) Count(opt Option) (count uint64, ok bool) {
	if !opt.Valid() {
		return 0, false
	}
	return *r.counter(opt), true
}

// Counts returns the four counters in option order
func (r Record) Counts() [NumOptions]uint64 {
	return [NumOptions]uint64{r.OptionA, r.OptionB, r.OptionC, r.OptionD}
}

// Total returns the sum of all votes. Saturates at math.MaxUint64.
func (r Record) Total() uint64 {
	var total uint64
	for _, c := range r.Counts() {
		if total > math.MaxUint64-c {
			return math.MaxUint64
		}
		total += c
	}
	return total
}

// Vote adds a single vote to an option. Counters never wrap: an increment
// past math.MaxUint64 fails with ErrOverflow and leaves the record unchanged.
func (r *Record) Vote(opt Option) error {
	if !opt.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOption, uint8(opt))
	}
	counter := r.counter(opt)
	if *counter == math.MaxUint64 {
		return fmt.Errorf("%w: option %s", ErrOverflow, opt)
	}
	*counter++
	return nil
}

func (r *Record) counter(opt Option) *uint64 {
	switch opt {
	case OptionA:
		return &r.OptionA
	case OptionB:
		return &r.OptionB
	case OptionC:
		return &r.OptionC
	case OptionD:
		return &r.OptionD
	default:
		panic(fmt.Sprintf("invalid option %d", uint8(opt)))
	}
}

// Encode writes the record into dst which must be at least RecordSize long
func (r Record) Encode(dst []byte) {
	_ = dst[RecordSize-1]
	if r.Initialized {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	for i, c := range r.Counts() {
		binary.LittleEndian.PutUint64(dst[1+i*8:], c)
	}
}

// MarshalBinary returns the RecordSize byte encoding of the record
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	r.Encode(buf)
	return buf, nil
}

// UnmarshalBinary decodes exactly RecordSize bytes. Any other length, or an
// initialized flag other than 0x00 or 0x01, returns ErrDecode.
func (r *Record) UnmarshalBinary(data []byte) error {
	rec, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// DecodeRecord reverses Encode
func DecodeRecord(data []byte) (Record, error) {
	if len(data) != RecordSize {
		return Record{}, fmt.Errorf("%w: tally record must be %d bytes, got %d", ErrDecode, RecordSize, len(data))
	}
	var r Record
	switch data[0] {
	case 0:
	case 1:
		r.Initialized = true
	default:
		return Record{}, fmt.Errorf("%w: invalid initialized flag 0x%02x", ErrDecode, data[0])
	}
	r.OptionA = binary.LittleEndian.Uint64(data[1:9])
	r.OptionB = binary.LittleEndian.Uint64(data[9:17])
	r.OptionC = binary.LittleEndian.Uint64(data[17:25])
	r.OptionD = binary.LittleEndian.Uint64(data[25:33])
	return r, nil
}

func (r Record) String() string {
	return fmt.Sprintf("Record{%t, A:%d B:%d C:%d D:%d}", r.Initialized, r.OptionA, r.OptionB, r.OptionC, r.OptionD)
}
