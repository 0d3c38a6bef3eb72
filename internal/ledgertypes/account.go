package ledgertypes

// AccountInfo is the `accounts` table value: the tip of one account's
// chain plus enough bookkeeping that the ledger never needs to walk the
// chain to answer "what is the current balance / representative / head
// block count" (§3.2, §6.1).
type AccountInfo struct {
	Head                Hash
	RepresentativeBlock Hash
	OpenBlock           Hash
	Balance             Amount
	ModifiedTimestamp   int64
	BlockCount          Height
	Epoch               Epoch
}

// IsZero reports whether this is the implicit info of an account that has
// never been opened (no `accounts` row). An unopened account behaves as
// if its balance were 0 (§4.1.3 negative-spend / is_send detection).
func (i AccountInfo) IsZero() bool { return i.OpenBlock.IsZero() }

// PendingKey identifies one unclaimed send: the destination account paired
// with the hash of the send block that created it (§3.2, §6.1 `pending`
// table key).
type PendingKey struct {
	Destination Account
	SendHash    Hash
}

// PendingInfo is the `pending` table value: who sent it, how much, and
// under which epoch, so a receive block can validate without re-reading
// the send block (§3.2).
type PendingInfo struct {
	Source Account
	Amount Amount
	Epoch  Epoch
}

// Encode renders a PendingInfo as its on-disk value: account || amount(16) || epoch.
func (p PendingInfo) Encode() []byte {
	out := make([]byte, HashSize+AmountSize+1)
	copy(out[:HashSize], p.Source[:])
	copy(out[HashSize:HashSize+AmountSize], p.Amount.Bytes())
	out[HashSize+AmountSize] = byte(p.Epoch)
	return out
}

// DecodePendingInfo parses the value `Encode` produces.
func DecodePendingInfo(b []byte) PendingInfo {
	var p PendingInfo
	p.Source = AccountFromBytes(b[:HashSize])
	p.Amount = AmountFromBytes(b[HashSize : HashSize+AmountSize])
	p.Epoch = Epoch(b[HashSize+AmountSize])
	return p
}

// Encode renders an AccountInfo as its on-disk value, field widths fixed
// so the store can use bucket.Put without a length prefix.
func (i AccountInfo) Encode() []byte {
	out := make([]byte, HashSize*3+AmountSize+8+8+1)
	o := 0
	copy(out[o:o+HashSize], i.Head[:])
	o += HashSize
	copy(out[o:o+HashSize], i.RepresentativeBlock[:])
	o += HashSize
	copy(out[o:o+HashSize], i.OpenBlock[:])
	o += HashSize
	copy(out[o:o+AmountSize], i.Balance.Bytes())
	o += AmountSize
	putUint64(out[o:o+8], uint64(i.ModifiedTimestamp))
	o += 8
	putUint64(out[o:o+8], uint64(i.BlockCount))
	o += 8
	out[o] = byte(i.Epoch)
	return out
}

// DecodeAccountInfo parses the value `Encode` produces.
func DecodeAccountInfo(b []byte) AccountInfo {
	var i AccountInfo
	o := 0
	i.Head = HashFromBytes(b[o : o+HashSize])
	o += HashSize
	i.RepresentativeBlock = HashFromBytes(b[o : o+HashSize])
	o += HashSize
	i.OpenBlock = HashFromBytes(b[o : o+HashSize])
	o += HashSize
	i.Balance = AmountFromBytes(b[o : o+AmountSize])
	o += AmountSize
	i.ModifiedTimestamp = int64(getUint64(b[o : o+8]))
	o += 8
	i.BlockCount = Height(getUint64(b[o : o+8]))
	o += 8
	i.Epoch = Epoch(b[o])
	return i
}
