package records

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/recordsync/errors"
	"github.com/mitchellh/mapstructure"
)

// UnmarshalJSON decodes a single record of type t from its JSON wire form.
func UnmarshalJSON(t Type, data []byte) (Record, error) {
	var (
		rec Record
		err error
	)
	switch t {
	case TypeConnection:
		var c ConnectionRecord
		err = json.Unmarshal(data, &c)
		rec = c
	case TypeCredential:
		var c CredentialExchangeRecord
		err = json.Unmarshal(data, &c)
		rec = c
	case TypeProof:
		var p ProofExchangeRecord
		err = json.Unmarshal(data, &p)
		rec = p
	default:
		return nil, errors.UnknownKind(string(t))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordInvalid, fmt.Sprintf("failed to decode %s", t)).
			WithDetail("recordType", string(t))
	}
	return validate(t, rec)
}

// Decode converts a generic map (as produced by YAML, TOML or JSON parsers) into a record of type t.
func Decode(t Type, raw map[string]interface{}) (Record, error) {
	var (
		rec Record
		err error
	)
	switch t {
	case TypeConnection:
		var c ConnectionRecord
		err = decodeMap(raw, &c)
		rec = c
	case TypeCredential:
		var c CredentialExchangeRecord
		err = decodeMap(raw, &c)
		rec = c
	case TypeProof:
		var p ProofExchangeRecord
		err = decodeMap(raw, &p)
		rec = p
	default:
		return nil, errors.UnknownKind(string(t))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordInvalid, fmt.Sprintf("failed to decode %s", t)).
			WithDetail("recordType", string(t))
	}
	return validate(t, rec)
}

func decodeMap(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func validate(t Type, rec Record) (Record, error) {
	if strings.TrimSpace(rec.RecordID()) == "" {
		return nil, errors.RecordInvalid(string(t), "missing id")
	}
	return rec, nil
}
