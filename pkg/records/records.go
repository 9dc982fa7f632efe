// Package records defines the agent-owned record kinds that recordsync mirrors.
//
// Records are value types. Anything handed to a mirror is a copy; the agent keeps the original.
package records

import (
	"strings"
	"time"

	"github.com/grovetools/recordsync/errors"
)

// Type is the record-type tag the agent attaches to records and their events.
type Type string

const (
	TypeConnection Type = "ConnectionRecord"
	TypeCredential Type = "CredentialRecord"
	TypeProof      Type = "ProofRecord"
)

// Types lists every mirrored record type in display order.
var Types = []Type{TypeConnection, TypeCredential, TypeProof}

// Record is the shape shared by every mirrored record.
type Record interface {
	RecordID() string
	RecordState() string
	RecordType() Type
}

// Base holds the fields common to all agent records.
type Base struct {
	ID        string            `json:"id" yaml:"id" mapstructure:"id"`
	CreatedAt time.Time         `json:"createdAt" yaml:"createdAt" mapstructure:"createdAt"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty" mapstructure:"updatedAt"`
	Tags      map[string]string `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
}

// RecordID returns the record identifier.
func (b Base) RecordID() string { return b.ID }

func (b Base) cloneBase() Base {
	out := b
	if b.UpdatedAt != nil {
		t := *b.UpdatedAt
		out.UpdatedAt = &t
	}
	if b.Tags != nil {
		out.Tags = make(map[string]string, len(b.Tags))
		for k, v := range b.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// Kind returns the plural, lower-case name used on the command line and in directory layouts.
func (t Type) Kind() string {
	switch t {
	case TypeConnection:
		return "connections"
	case TypeCredential:
		return "credentials"
	case TypeProof:
		return "proofs"
	}
	return strings.ToLower(string(t))
}

// ParseKind resolves a user-supplied kind ("connections", "credential", "ProofRecord", ...) to a Type.
func ParseKind(kind string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "connections", "connection", "conn", "connectionrecord":
		return TypeConnection, nil
	case "credentials", "credential", "cred", "credentialrecord", "credentialexchangerecord":
		return TypeCredential, nil
	case "proofs", "proof", "proofrecord", "proofexchangerecord":
		return TypeProof, nil
	}
	return "", errors.UnknownKind(kind)
}

// Clone returns a deep copy of r. Records of unknown concrete type are returned unchanged.
func Clone(r Record) Record {
	switch v := r.(type) {
	case ConnectionRecord:
		return v.Clone()
	case CredentialExchangeRecord:
		return v.Clone()
	case ProofExchangeRecord:
		return v.Clone()
	case *ConnectionRecord:
		return v.Clone()
	case *CredentialExchangeRecord:
		return v.Clone()
	case *ProofExchangeRecord:
		return v.Clone()
	}
	return r
}
