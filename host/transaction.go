package host

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/pkg/sign"
)

const (
	// TxVersion is the first byte of every signed message. It allows the
	// format to change without old signatures verifying under the new one.
	TxVersion uint8 = 1

	// MaxDataSize indicates the maximum length in bytes of instruction data.
	// Data can be empty.
	MaxDataSize = math.MaxUint8

	signedHeaderSize = 1 + 8 + 3*account.PubkeySize + 1
)

var ErrInvalidSignedMsgLength = errors.New("invalid signed message length")

// Transaction is a request by a payer to run a program's instruction against
// one account. It is authorized by the payer's signature over SignBytes.
type Transaction struct {
	Payer   account.Pubkey
	Program account.Pubkey
	Account account.Pubkey
	Data    []byte
	// Nonce must strictly increase for each transaction from the same payer
	Nonce     uint64
	Signature []byte
}

func NewTransaction(payer, program, acc account.Pubkey, data []byte, nonce uint64) *Transaction {
	return &Transaction{
		Payer:   payer,
		Program: program,
		Account: acc,
		Data:    data,
		Nonce:   nonce,
	}
}

// SignBytes is the canonical encoding the payer signs over
func (tx Transaction) SignBytes() []byte {
	return EncodeMsgToSign(tx.Nonce, tx.Payer, tx.Program, tx.Account, tx.Data)
}

// Level is the watermark the signer must be above to sign this transaction
func (tx Transaction) Level() sign.Watermark {
	return sign.Watermark{tx.Nonce}
}

// Sign signs the transaction with signer, which becomes the payer
func (tx *Transaction) Sign(ctx context.Context, signer sign.Signer) error {
	tx.Payer = signer.ID()
	sig, err := signer.Sign(ctx, tx.Level(), tx.SignBytes())
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	tx.Signature = sig
	return nil
}

// Verify checks the payer's signature
func (tx Transaction) Verify(verify sign.VerifyFunc) bool {
	return verify(tx.Payer.Bytes(), tx.SignBytes(), tx.Signature)
}

func (tx Transaction) ValidateForm() error {
	if len(tx.Signature) == 0 {
		return errors.New("transaction does not contain any signature")
	}

	if tx.Payer.IsZero() {
		return errors.New("transaction has no payer")
	}

	if tx.Program.IsZero() {
		return errors.New("transaction has no program")
	}

	if tx.Account.IsZero() {
		return errors.New("transaction has no account")
	}

	if len(tx.Data) > MaxDataSize {
		return fmt.Errorf("instruction data can not be longer than %d bytes", MaxDataSize)
	}

	return nil
}

func (tx *Transaction) String() string {
	if tx == nil {
		return "nil"
	}

	return fmt.Sprintf("Tx{%s #%d -> %s @ %s data:%X}", tx.Payer.Short(), tx.Nonce, tx.Program.Short(), tx.Account.Short(), tx.Data)
}

// EncodeMsgToSign encodes the information to be signed over
//
// The format is:
// 1 byte version
// 8 bytes nonce
// 32 bytes payer
// 32 bytes program
// 32 bytes account
// up to 255 bytes length prefixed instruction data (single byte length)
//
// Data can be left empty
func EncodeMsgToSign(
	nonce uint64,
	payer account.Pubkey,
	program account.Pubkey,
	acc account.Pubkey,
	data []byte,
) []byte {
	if len(data) > MaxDataSize {
		panic("instruction data can not be longer than 255 bytes")
	}
	buf := bytes.NewBuffer(make([]byte, 0, signedHeaderSize+len(data)))
	buf.WriteByte(TxVersion)
	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, nonce)
	buf.Write(nonceBytes)
	buf.Write(payer[:])
	buf.Write(program[:])
	buf.Write(acc[:])
	buf.WriteByte(byte(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// DecodeSignedMsg reverses the encoding scheme, returning an unsigned
// transaction.
func DecodeSignedMsg(msg []byte) (*Transaction, error) {
	if len(msg) < signedHeaderSize {
		return nil, ErrInvalidSignedMsgLength
	}
	if msg[0] != TxVersion {
		return nil, fmt.Errorf("unsupported transaction version %d", msg[0])
	}

	tx := &Transaction{}
	tx.Nonce = binary.BigEndian.Uint64(msg[1:9])
	offset := 9
	for _, pk := range []*account.Pubkey{&tx.Payer, &tx.Program, &tx.Account} {
		copy(pk[:], msg[offset:offset+account.PubkeySize])
		offset += account.PubkeySize
	}
	dataLength := int(msg[offset])
	offset++
	if len(msg) != offset+dataLength {
		return nil, ErrInvalidSignedMsgLength
	}
	if dataLength > 0 {
		tx.Data = bytes.Clone(msg[offset:])
	}
	return tx, nil
}
