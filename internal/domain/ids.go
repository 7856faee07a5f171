package domain

import (
	"strconv"
)

// PrincipalID is the authenticated principal's identifier (the username for Basic auth,
// the JWT `sub` for bearer auth). It is the only value ever written to a card's owner.
type PrincipalID string

// CashCardID is the store-assigned identifier of a cash card. IDs are unique across
// the whole store, not per owner.
type CashCardID int64

func (id CashCardID) String() string { return strconv.FormatInt(int64(id), 10) }
