package mirror

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/records"
)

// Snapshot is a type-erased State.
type Snapshot struct {
	Loading bool             `json:"loading"`
	Items   []records.Record `json:"items"`
}

// View is the kind-independent surface of a Synchronizer, used by transports and commands.
type View interface {
	Kind() records.Type
	Start(ctx context.Context, src Source) error
	Close()
	Snapshot() Snapshot
	Get(id string) (records.Record, bool)
	Filter(state string) []records.Record
	Subscribed() bool
}

// Provider bundles the connection, credential and proof mirrors behind one lifecycle.
type Provider struct {
	Connections *Synchronizer[records.ConnectionRecord]
	Credentials *Synchronizer[records.CredentialExchangeRecord]
	Proofs      *Synchronizer[records.ProofExchangeRecord]
}

// NewProvider creates the three mirrors with shared options.
func NewProvider(opts ...Option) *Provider {
	return &Provider{
		Connections: New[records.ConnectionRecord](records.TypeConnection, opts...),
		Credentials: New[records.CredentialExchangeRecord](records.TypeCredential, opts...),
		Proofs:      New[records.ProofExchangeRecord](records.TypeProof, opts...),
	}
}

// Views returns the mirrors in records.Types order.
func (p *Provider) Views() []View {
	return []View{p.Connections, p.Credentials, p.Proofs}
}

// Kind returns the mirror for record type t.
func (p *Provider) Kind(t records.Type) (View, error) {
	for _, v := range p.Views() {
		if v.Kind() == t {
			return v, nil
		}
	}
	return nil, errors.UnknownKind(string(t))
}

// Start starts every mirror against src concurrently and joins their errors.
func (p *Provider) Start(ctx context.Context, src Source) error {
	starters := []func(context.Context, Source) error{
		p.Connections.Start,
		p.Credentials.Start,
		p.Proofs.Start,
	}

	var wg sync.WaitGroup
	errs := make([]error, len(starters))
	for i, start := range starters {
		wg.Add(1)
		go func(i int, start func(context.Context, Source) error) {
			defer wg.Done()
			errs[i] = start(ctx, src)
		}(i, start)
	}
	wg.Wait()

	return stderrors.Join(errs...)
}

// SetSource points every mirror at a new source.
func (p *Provider) SetSource(ctx context.Context, src Source) error {
	return p.Start(ctx, src)
}

// Close closes every mirror.
func (p *Provider) Close() {
	p.Connections.Close()
	p.Credentials.Close()
	p.Proofs.Close()
}

type providerKey struct{}

// WithProvider returns a context carrying p for the hook-style accessors below.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider in scope, if any.
func FromContext(ctx context.Context) (*Provider, bool) {
	p, ok := ctx.Value(providerKey{}).(*Provider)
	return p, ok && p != nil
}

// MustFromContext returns the provider in scope and panics when there is none.
func MustFromContext(ctx context.Context) *Provider {
	return mustProvider(ctx, "MustFromContext")
}

func mustProvider(ctx context.Context, accessor string) *Provider {
	p, ok := FromContext(ctx)
	if !ok {
		panic(fmt.Sprintf("mirror: %s must be used within a provider scope (see WithProvider)", accessor))
	}
	return p
}

// Connections returns the connection mirror state.
func Connections(ctx context.Context) State[records.ConnectionRecord] {
	return mustProvider(ctx, "Connections").Connections.State()
}

// ConnectionByID returns the mirrored connection with the given id.
func ConnectionByID(ctx context.Context, id string) (records.ConnectionRecord, bool) {
	return mustProvider(ctx, "ConnectionByID").Connections.ByID(id)
}

// ConnectionsByState returns the mirrored connections in the given state.
func ConnectionsByState(ctx context.Context, state records.DidExchangeState) []records.ConnectionRecord {
	return mustProvider(ctx, "ConnectionsByState").Connections.ByState(string(state))
}

// Credentials returns the credential mirror state.
func Credentials(ctx context.Context) State[records.CredentialExchangeRecord] {
	return mustProvider(ctx, "Credentials").Credentials.State()
}

// CredentialByID returns the mirrored credential exchange with the given id.
func CredentialByID(ctx context.Context, id string) (records.CredentialExchangeRecord, bool) {
	return mustProvider(ctx, "CredentialByID").Credentials.ByID(id)
}

// CredentialsByState returns the mirrored credential exchanges in the given state.
func CredentialsByState(ctx context.Context, state records.CredentialState) []records.CredentialExchangeRecord {
	return mustProvider(ctx, "CredentialsByState").Credentials.ByState(string(state))
}

// Proofs returns the proof mirror state.
func Proofs(ctx context.Context) State[records.ProofExchangeRecord] {
	return mustProvider(ctx, "Proofs").Proofs.State()
}

// ProofByID returns the mirrored proof exchange with the given id.
func ProofByID(ctx context.Context, id string) (records.ProofExchangeRecord, bool) {
	return mustProvider(ctx, "ProofByID").Proofs.ByID(id)
}

// ProofsByState returns the mirrored proof exchanges in the given state.
func ProofsByState(ctx context.Context, state records.ProofState) []records.ProofExchangeRecord {
	return mustProvider(ctx, "ProofsByState").Proofs.ByState(string(state))
}
