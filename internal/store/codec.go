package store

import (
	"encoding/binary"
	"fmt"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// encodeDetails packs SidebandDetails + Epoch into a single byte:
// bit0 is_send, bit1 is_receive, bit2 is_epoch, bits3-4 epoch (0-3).
func encodeDetails(d ledgertypes.SidebandDetails) byte {
	var b byte
	if d.IsSend {
		b |= 1 << 0
	}
	if d.IsReceive {
		b |= 1 << 1
	}
	if d.IsEpoch {
		b |= 1 << 2
	}
	b |= byte(d.Epoch) << 3
	return b
}

func decodeDetails(b byte) ledgertypes.SidebandDetails {
	return ledgertypes.SidebandDetails{
		IsSend:    b&(1<<0) != 0,
		IsReceive: b&(1<<1) != 0,
		IsEpoch:   b&(1<<2) != 0,
		Epoch:     ledgertypes.Epoch(b >> 3),
	}
}

const sidebandSize = ledgertypes.HashSize*2 + ledgertypes.AmountSize + 8 + 8 + 1 + 1

func encodeSideband(sb ledgertypes.Sideband) []byte {
	out := make([]byte, sidebandSize)
	o := 0
	copy(out[o:o+ledgertypes.HashSize], sb.Account[:])
	o += ledgertypes.HashSize
	copy(out[o:o+ledgertypes.HashSize], sb.Successor[:])
	o += ledgertypes.HashSize
	copy(out[o:o+ledgertypes.AmountSize], sb.Balance.Bytes())
	o += ledgertypes.AmountSize
	binary.BigEndian.PutUint64(out[o:o+8], uint64(sb.Height))
	o += 8
	binary.BigEndian.PutUint64(out[o:o+8], uint64(sb.Timestamp))
	o += 8
	out[o] = encodeDetails(sb.Details)
	o++
	out[o] = byte(sb.SourceEpoch)
	return out
}

func decodeSideband(b []byte) ledgertypes.Sideband {
	var sb ledgertypes.Sideband
	o := 0
	sb.Account = ledgertypes.AccountFromBytes(b[o : o+ledgertypes.HashSize])
	o += ledgertypes.HashSize
	sb.Successor = ledgertypes.HashFromBytes(b[o : o+ledgertypes.HashSize])
	o += ledgertypes.HashSize
	sb.Balance = ledgertypes.AmountFromBytes(b[o : o+ledgertypes.AmountSize])
	o += ledgertypes.AmountSize
	sb.Height = ledgertypes.Height(binary.BigEndian.Uint64(b[o : o+8]))
	o += 8
	sb.Timestamp = int64(binary.BigEndian.Uint64(b[o : o+8]))
	o += 8
	sb.Details = decodeDetails(b[o])
	o++
	sb.SourceEpoch = ledgertypes.Epoch(b[o])
	return sb
}

// EncodeStoredBlock renders a block plus its sideband as the `blocks`
// table value: type tag, variant fields, signature, work, sideband.
func EncodeStoredBlock(sb ledgertypes.StoredBlock) ([]byte, error) {
	blk := sb.Block
	var fields []byte

	switch b := blk.(type) {
	case *ledgertypes.OpenBlock:
		fields = append(fields, b.SourceHash[:]...)
		fields = append(fields, b.Representative[:]...)
		fields = append(fields, b.AccountID[:]...)
	case *ledgertypes.SendBlock:
		fields = append(fields, b.PreviousHash[:]...)
		fields = append(fields, b.Destination[:]...)
		fields = append(fields, b.Balance.Bytes()...)
	case *ledgertypes.ReceiveBlock:
		fields = append(fields, b.PreviousHash[:]...)
		fields = append(fields, b.SourceHash[:]...)
	case *ledgertypes.ChangeBlock:
		fields = append(fields, b.PreviousHash[:]...)
		fields = append(fields, b.Representative[:]...)
	case *ledgertypes.StateBlock:
		fields = append(fields, b.AccountID[:]...)
		fields = append(fields, b.PreviousHash[:]...)
		fields = append(fields, b.Representative[:]...)
		fields = append(fields, b.Balance.Bytes()...)
		fields = append(fields, b.Link[:]...)
	default:
		return nil, fmt.Errorf("store: unknown block variant %T", blk)
	}

	out := make([]byte, 0, 1+len(fields)+ledgertypes.SignatureSize+8+sidebandSize)
	out = append(out, byte(blk.Type()))
	out = append(out, fields...)
	sig := blk.Signature()
	out = append(out, sig[:]...)
	workBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(workBuf, blk.Work())
	out = append(out, workBuf...)
	out = append(out, encodeSideband(sb.Sideband)...)
	return out, nil
}

// DecodeStoredBlock parses the value EncodeStoredBlock produces.
func DecodeStoredBlock(data []byte) (ledgertypes.StoredBlock, error) {
	if len(data) < 1 {
		return ledgertypes.StoredBlock{}, fmt.Errorf("store: empty block record")
	}
	t := ledgertypes.BlockType(data[0])
	o := 1

	readHash := func() ledgertypes.Hash {
		h := ledgertypes.HashFromBytes(data[o : o+ledgertypes.HashSize])
		o += ledgertypes.HashSize
		return h
	}
	readAccount := func() ledgertypes.Account {
		return ledgertypes.Account(readHash())
	}
	readAmount := func() ledgertypes.Amount {
		a := ledgertypes.AmountFromBytes(data[o : o+ledgertypes.AmountSize])
		o += ledgertypes.AmountSize
		return a
	}

	var blk ledgertypes.Block
	switch t {
	case ledgertypes.BlockTypeOpen:
		b := &ledgertypes.OpenBlock{}
		b.SourceHash = readHash()
		b.Representative = readAccount()
		b.AccountID = readAccount()
		blk = b
	case ledgertypes.BlockTypeSend:
		b := &ledgertypes.SendBlock{}
		b.PreviousHash = readHash()
		b.Destination = readAccount()
		b.Balance = readAmount()
		blk = b
	case ledgertypes.BlockTypeReceive:
		b := &ledgertypes.ReceiveBlock{}
		b.PreviousHash = readHash()
		b.SourceHash = readHash()
		blk = b
	case ledgertypes.BlockTypeChange:
		b := &ledgertypes.ChangeBlock{}
		b.PreviousHash = readHash()
		b.Representative = readAccount()
		blk = b
	case ledgertypes.BlockTypeState:
		b := &ledgertypes.StateBlock{}
		b.AccountID = readAccount()
		b.PreviousHash = readHash()
		b.Representative = readAccount()
		b.Balance = readAmount()
		b.Link = readHash()
		blk = b
	default:
		return ledgertypes.StoredBlock{}, fmt.Errorf("store: unknown block type tag %d", t)
	}

	sig := ledgertypes.SignatureFromBytes(data[o : o+ledgertypes.SignatureSize])
	o += ledgertypes.SignatureSize
	work := binary.BigEndian.Uint64(data[o : o+8])
	o += 8
	blk.SetSignature(sig)
	blk.SetWork(work)

	sb := decodeSideband(data[o : o+sidebandSize])
	return ledgertypes.StoredBlock{Block: blk, Sideband: sb}, nil
}

func encodeConfirmationHeight(height ledgertypes.Height, frontier ledgertypes.Hash) []byte {
	out := make([]byte, 8+ledgertypes.HashSize)
	binary.BigEndian.PutUint64(out[:8], uint64(height))
	copy(out[8:], frontier[:])
	return out
}

func decodeConfirmationHeight(b []byte) (ledgertypes.Height, ledgertypes.Hash) {
	h := ledgertypes.Height(binary.BigEndian.Uint64(b[:8]))
	return h, ledgertypes.HashFromBytes(b[8:])
}
