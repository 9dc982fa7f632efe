package records

// ProofState is the state of a proof exchange.
type ProofState string

const (
	ProofProposalSent         ProofState = "proposal-sent"
	ProofProposalReceived     ProofState = "proposal-received"
	ProofRequestSent          ProofState = "request-sent"
	ProofRequestReceived      ProofState = "request-received"
	ProofPresentationSent     ProofState = "presentation-sent"
	ProofPresentationReceived ProofState = "presentation-received"
	ProofDeclined             ProofState = "declined"
	ProofAbandoned            ProofState = "abandoned"
	ProofDone                 ProofState = "done"
)

// ProofExchangeRecord mirrors a proof exchange owned by the agent.
type ProofExchangeRecord struct {
	Base            `yaml:",inline" mapstructure:",squash"`
	State           ProofState `json:"state" yaml:"state" mapstructure:"state"`
	ConnectionID    string     `json:"connectionId,omitempty" yaml:"connectionId,omitempty" mapstructure:"connectionId"`
	ThreadID        string     `json:"threadId,omitempty" yaml:"threadId,omitempty" mapstructure:"threadId"`
	ProtocolVersion string     `json:"protocolVersion,omitempty" yaml:"protocolVersion,omitempty" mapstructure:"protocolVersion"`
	IsVerified      *bool      `json:"isVerified,omitempty" yaml:"isVerified,omitempty" mapstructure:"isVerified"`
}

func (p ProofExchangeRecord) RecordState() string { return string(p.State) }
func (p ProofExchangeRecord) RecordType() Type    { return TypeProof }

// Clone returns a deep copy of the record.
func (p ProofExchangeRecord) Clone() ProofExchangeRecord {
	out := p
	out.Base = p.cloneBase()
	if p.IsVerified != nil {
		v := *p.IsVerified
		out.IsVerified = &v
	}
	return out
}
