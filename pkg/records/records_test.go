package records

import (
	"testing"
	"time"

	"github.com/grovetools/recordsync/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"connections", TypeConnection},
		{"Connection", TypeConnection},
		{"ConnectionRecord", TypeConnection},
		{"credentials", TypeCredential},
		{"CredentialRecord", TypeCredential},
		{" proofs ", TypeProof},
		{"proof", TypeProof},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("widgets")
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownKind))
}

func TestKindRoundTrip(t *testing.T) {
	for _, typ := range Types {
		got, err := ParseKind(typ.Kind())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
}

func TestDecodeFromGenericMap(t *testing.T) {
	raw := map[string]interface{}{
		"id":         "conn-1",
		"state":      "completed",
		"theirLabel": "Faber College",
		"createdAt":  "2022-03-01T10:00:00Z",
		"tags":       map[string]interface{}{"threadId": "t-1"},
	}

	rec, err := Decode(TypeConnection, raw)
	require.NoError(t, err)

	conn, ok := rec.(ConnectionRecord)
	require.True(t, ok, "expected ConnectionRecord, got %T", rec)
	assert.Equal(t, "conn-1", conn.RecordID())
	assert.Equal(t, DidExchangeCompleted, conn.State)
	assert.Equal(t, "Faber College", conn.TheirLabel)
	assert.Equal(t, time.Date(2022, 3, 1, 10, 0, 0, 0, time.UTC), conn.CreatedAt.UTC())
	assert.Equal(t, "t-1", conn.Tags["threadId"])
}

func TestDecodeCredentialAttributes(t *testing.T) {
	raw := map[string]interface{}{
		"id":    "cred-1",
		"state": "offer-received",
		"credentialAttributes": []interface{}{
			map[string]interface{}{"name": "degree", "value": "Bachelor of Science"},
		},
	}

	rec, err := Decode(TypeCredential, raw)
	require.NoError(t, err)
	cred := rec.(CredentialExchangeRecord)
	require.Len(t, cred.CredentialAttributes, 1)
	assert.Equal(t, "degree", cred.CredentialAttributes[0].Name)
	assert.Equal(t, string(CredentialOfferReceived), cred.RecordState())
}

func TestDecodeRejectsMissingID(t *testing.T) {
	_, err := Decode(TypeProof, map[string]interface{}{"state": "done"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRecordInvalid))
}

func TestUnmarshalJSON(t *testing.T) {
	rec, err := UnmarshalJSON(TypeProof, []byte(`{"id":"p-1","state":"done","isVerified":true}`))
	require.NoError(t, err)

	proof := rec.(ProofExchangeRecord)
	require.NotNil(t, proof.IsVerified)
	assert.True(t, *proof.IsVerified)
	assert.Equal(t, TypeProof, proof.RecordType())

	_, err = UnmarshalJSON(Type("Widget"), []byte(`{}`))
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownKind))

	_, err = UnmarshalJSON(TypeProof, []byte(`{"id":`))
	assert.True(t, errors.Is(err, errors.ErrCodeRecordInvalid))
}

func TestCloneIsDeep(t *testing.T) {
	verified := true
	orig := ProofExchangeRecord{
		Base:       Base{ID: "p-1", Tags: map[string]string{"a": "1"}},
		State:      ProofDone,
		IsVerified: &verified,
	}

	cloned := Clone(orig).(ProofExchangeRecord)
	cloned.Tags["a"] = "2"
	*cloned.IsVerified = false

	assert.Equal(t, "1", orig.Tags["a"])
	assert.True(t, *orig.IsVerified)
}
