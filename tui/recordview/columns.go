// Package recordview renders mirrored records, both as static rows and as a live bubbletea view.
package recordview

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/recordsync/pkg/records"
	"gopkg.in/yaml.v3"
)

const timeLayout = "2006-01-02 15:04"

// Columns returns the table headers for records of type t.
func Columns(t records.Type) []string {
	switch t {
	case records.TypeConnection:
		return []string{"ID", "STATE", "ROLE", "THEIR LABEL", "CREATED"}
	case records.TypeCredential:
		return []string{"ID", "STATE", "CONNECTION", "ATTRIBUTES", "CREATED"}
	case records.TypeProof:
		return []string{"ID", "STATE", "CONNECTION", "VERIFIED", "CREATED"}
	}
	return []string{"ID", "STATE"}
}

// Row returns the cells of r in Columns order. State is left unstyled.
func Row(r records.Record) []string {
	switch v := records.Clone(r).(type) {
	case records.ConnectionRecord:
		return []string{v.ID, string(v.State), dash(v.Role), dash(v.TheirLabel), created(v.CreatedAt)}
	case records.CredentialExchangeRecord:
		names := make([]string, 0, len(v.CredentialAttributes))
		for _, a := range v.CredentialAttributes {
			names = append(names, a.Name)
		}
		return []string{v.ID, string(v.State), dash(v.ConnectionID), dash(strings.Join(names, ",")), created(v.CreatedAt)}
	case records.ProofExchangeRecord:
		verified := "-"
		if v.IsVerified != nil {
			verified = strconv.FormatBool(*v.IsVerified)
		}
		return []string{v.ID, string(v.State), dash(v.ConnectionID), verified, created(v.CreatedAt)}
	}
	return []string{r.RecordID(), r.RecordState()}
}

// Rows converts records with Row.
func Rows(items []records.Record) [][]string {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, Row(r))
	}
	return rows
}

// Details renders r as YAML for the details pane and `get` output.
func Details(r records.Record) (string, error) {
	data, err := yaml.Marshal(records.Clone(r))
	if err != nil {
		return "", fmt.Errorf("failed to render %s %s: %w", r.RecordType(), r.RecordID(), err)
	}
	return string(data), nil
}

// FilterState keeps the records whose state equals state. An empty state keeps everything.
func FilterState(items []records.Record, state string) []records.Record {
	if state == "" {
		return items
	}
	out := make([]records.Record, 0, len(items))
	for _, r := range items {
		if r.RecordState() == state {
			out = append(out, r)
		}
	}
	return out
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func created(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
