package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"

	"github.com/google/uuid"
)

// RunContext carries the run identity, credentials and sample-data policy
// through every stage of a run. It is immutable after construction.
type RunContext struct {
	runID       string
	allowSample bool
	credentials map[string]string
}

// NewRunContext creates a RunContext with a fresh run id. The credentials map
// is copied; entries with empty values are treated as absent.
func NewRunContext(allowSampleData bool, credentials map[string]string) RunContext {
	return NewRunContextWithID(uuid.NewString(), allowSampleData, credentials)
}

// NewRunContextWithID is NewRunContext with a caller-supplied run id.
func NewRunContextWithID(runID string, allowSampleData bool, credentials map[string]string) RunContext {
	creds := make(map[string]string, len(credentials))
	for k, v := range credentials {
		if v != "" {
			creds[k] = v
		}
	}
	return RunContext{runID: runID, allowSample: allowSampleData, credentials: creds}
}

func (rc RunContext) RunID() string         { return rc.runID }
func (rc RunContext) AllowSampleData() bool { return rc.allowSample }

// Credential returns the secret configured for name.
func (rc RunContext) Credential(name string) (string, bool) {
	v, ok := rc.credentials[name]
	return v, ok
}

// HasCredential reports whether a non-empty credential exists for name.
func (rc RunContext) HasCredential(name string) bool {
	_, ok := rc.credentials[name]
	return ok
}

// Credentials returns a copy of the credential map.
func (rc RunContext) Credentials() map[string]string {
	return maps.Clone(rc.credentials)
}

// HashCredential returns the hex SHA-256 digest of a credential, or "" when
// the credential is empty. Raw secrets are never stored.
func HashCredential(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SourceHealthStatus computes a source's status from the run outcome.
func SourceHealthStatus(hasCredential, usedSample, fetched bool) SourceStatus {
	switch {
	case usedSample:
		return SourceSample
	case hasCredential && fetched:
		return SourceActive
	default:
		return SourceInactive
	}
}
