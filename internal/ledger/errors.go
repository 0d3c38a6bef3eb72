package ledger

import "errors"

var ErrNotARepresentativeBlock = errors.New("ledger: representative_block does not point at an open/change/state block")
