// Package codes holds the private-match code registry. Codes bind an
// account directly to a specific server, bypassing discovery. Creation and
// administration of codes happen outside this service; the matchmaker only
// reads them.
package codes

import (
	"context"
	"errors"
)

var ErrCodeNotFound = errors.New("matchmaking code not found")

// Code maps a private-match credential to a server address.
type Code struct {
	Code      string `db:"code" json:"code"`
	CodeLower string `db:"code_lower" json:"-"`
	OwnerID   string `db:"owner_id" json:"ownerId"`
	IP        string `db:"ip" json:"ip"`
	Port      int    `db:"port" json:"port"`
}

type Repo interface {
	// FindByCode looks a code up case-insensitively.
	FindByCode(ctx context.Context, code string) (*Code, error)
}
