package records

// DidExchangeState is the state of a connection in the DID exchange protocol.
type DidExchangeState string

const (
	DidExchangeStart              DidExchangeState = "start"
	DidExchangeInvitationSent     DidExchangeState = "invitation-sent"
	DidExchangeInvitationReceived DidExchangeState = "invitation-received"
	DidExchangeRequestSent        DidExchangeState = "request-sent"
	DidExchangeRequestReceived    DidExchangeState = "request-received"
	DidExchangeResponseSent       DidExchangeState = "response-sent"
	DidExchangeResponseReceived   DidExchangeState = "response-received"
	DidExchangeAbandoned          DidExchangeState = "abandoned"
	DidExchangeCompleted          DidExchangeState = "completed"
)

// ConnectionRecord mirrors a connection owned by the agent.
type ConnectionRecord struct {
	Base        `yaml:",inline" mapstructure:",squash"`
	State       DidExchangeState `json:"state" yaml:"state" mapstructure:"state"`
	Role        string           `json:"role,omitempty" yaml:"role,omitempty" mapstructure:"role"`
	TheirLabel  string           `json:"theirLabel,omitempty" yaml:"theirLabel,omitempty" mapstructure:"theirLabel"`
	Alias       string           `json:"alias,omitempty" yaml:"alias,omitempty" mapstructure:"alias"`
	Did         string           `json:"did,omitempty" yaml:"did,omitempty" mapstructure:"did"`
	TheirDid    string           `json:"theirDid,omitempty" yaml:"theirDid,omitempty" mapstructure:"theirDid"`
	OutOfBandID string           `json:"outOfBandId,omitempty" yaml:"outOfBandId,omitempty" mapstructure:"outOfBandId"`
	ThreadID    string           `json:"threadId,omitempty" yaml:"threadId,omitempty" mapstructure:"threadId"`
}

func (c ConnectionRecord) RecordState() string { return string(c.State) }
func (c ConnectionRecord) RecordType() Type    { return TypeConnection }

// Clone returns a deep copy of the record.
func (c ConnectionRecord) Clone() ConnectionRecord {
	out := c
	out.Base = c.cloneBase()
	return out
}
