// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package types

// RemoteType identifies the remote store implementation
type RemoteType string

const (
	RemoteHub    RemoteType = "hub"    // hub HTTP chunk API
	RemoteS3     RemoteType = "s3"     // S3-compatible object store
	RemoteLocal  RemoteType = "local"  // local directory (development)
	RemoteMemory RemoteType = "memory" // in-process (tests)
)

// IsValid returns true if the remote type is recognized
func (t RemoteType) IsValid() bool {
	switch t {
	case RemoteHub, RemoteS3, RemoteLocal, RemoteMemory:
		return true
	default:
		return false
	}
}

func (t RemoteType) String() string {
	return string(t)
}

// RemoteConfig selects and configures a remote store. Only the fields for
// the chosen Type are consulted.
type RemoteConfig struct {
	Type RemoteType `json:"type"`

	// Endpoint overrides the hub URL, or points the s3 remote at a
	// MinIO-style server.
	Endpoint string `json:"endpoint,omitempty"`

	// Hub
	Token string `json:"token,omitempty"`

	// S3
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	PathStyle bool   `json:"path_style,omitempty"`

	// Local
	Dir string `json:"dir,omitempty"`
}
