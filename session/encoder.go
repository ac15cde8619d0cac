package session

import (
	"encoding/json"
	"errors"
)

// ErrCorruptRecord is returned when the stored session blob cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt session record")

// ErrMissingToken is returned by Encode when the session has no bearer token.
var ErrMissingToken = errors.New("session token missing")

// Encode serializes a session for storage. The record is JSON so the web
// front-end sharing the storage scope can read it directly.
func Encode(s *Session) ([]byte, error) {
	if s == nil || s.Token == "" {
		return nil, ErrMissingToken
	}

	out := *s
	out.SchemaVersion = CurrentSchemaVersion
	out.Address = NormalizeAddress(out.Address)

	return json.Marshal(&out)
}

// Decode parses a stored session blob. Unknown schema versions and
// structurally invalid payloads fail with [ErrCorruptRecord]; version-1
// records (which predate the LoggedIn flag) are migrated in place.
func Decode(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, ErrCorruptRecord
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	if s.SchemaVersion <= 0 || s.SchemaVersion > CurrentSchemaVersion {
		return nil, ErrCorruptRecord
	}
	if s.Address == "" {
		return nil, ErrCorruptRecord
	}

	if s.SchemaVersion == 1 {
		// v1 records were only ever written after a successful login.
		s.LoggedIn = s.Token != ""
		s.SchemaVersion = CurrentSchemaVersion
	}

	s.Address = NormalizeAddress(s.Address)
	return &s, nil
}
