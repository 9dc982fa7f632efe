package agentfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// supportedExts maps record file extensions to their parser.
var supportedExts = map[string]func([]byte, *map[string]interface{}) error{
	".json": func(data []byte, out *map[string]interface{}) error { return json.Unmarshal(data, out) },
	".yml":  func(data []byte, out *map[string]interface{}) error { return yaml.Unmarshal(data, out) },
	".yaml": func(data []byte, out *map[string]interface{}) error { return yaml.Unmarshal(data, out) },
	".toml": func(data []byte, out *map[string]interface{}) error { return toml.Unmarshal(data, out) },
}

// IsRecordFile reports whether path has an extension the feed can parse.
func IsRecordFile(path string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ReadRecord parses one record file of type t. A record without an id takes the file stem.
func ReadRecord(t records.Type, path string) (records.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRecord(t, path, data)
}

// ParseRecord parses data as the record file at path.
func ParseRecord(t records.Type, path string, data []byte) (records.Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parse, ok := supportedExts[ext]
	if !ok {
		return nil, errors.RecordInvalid(string(t), fmt.Sprintf("unsupported file type %q", ext)).
			WithDetail("path", path)
	}

	raw := map[string]interface{}{}
	if err := parse(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordInvalid, "failed to parse record file").
			WithDetail("path", path)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	if id, _ := raw["id"].(string); strings.TrimSpace(id) == "" {
		raw["id"] = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	rec, err := records.Decode(t, raw)
	if err != nil {
		if se, ok := err.(*errors.SyncError); ok {
			se.WithDetail("path", path)
		}
		return nil, err
	}
	return rec, nil
}
