// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package types

// MiB is the unit all chunk sizing is expressed in.
const MiB = 1024 * 1024

// NetworkProfile classifies measured throughput into a chunk-size class.
// It is selected once per session by the network probe and treated as
// immutable for the lifetime of a plan.
type NetworkProfile string

const (
	// ProfileSlow targets links under 1 MB/s
	ProfileSlow NetworkProfile = "slow"
	// ProfileMedium targets links between 1 and 5 MB/s
	ProfileMedium NetworkProfile = "medium"
	// ProfileFast targets links between 5 and 20 MB/s
	ProfileFast NetworkProfile = "fast"
	// ProfileUltra targets links above 20 MB/s
	ProfileUltra NetworkProfile = "ultra"
)

// IsValid returns true if the profile is recognized
func (p NetworkProfile) IsValid() bool {
	switch p {
	case ProfileSlow, ProfileMedium, ProfileFast, ProfileUltra:
		return true
	default:
		return false
	}
}

// String returns the string representation of the profile
func (p NetworkProfile) String() string {
	return string(p)
}

// BaseChunkSize returns the transfer unit size for this profile.
// Unrecognized profiles fall back to the medium size.
func (p NetworkProfile) BaseChunkSize() int64 {
	switch p {
	case ProfileSlow:
		return 1 * MiB
	case ProfileMedium:
		return 5 * MiB
	case ProfileFast:
		return 10 * MiB
	case ProfileUltra:
		return 25 * MiB
	default:
		return 5 * MiB
	}
}

// ParseProfile parses a string into a NetworkProfile.
// Returns ProfileMedium for empty or unrecognized strings.
func ParseProfile(s string) NetworkProfile {
	p := NetworkProfile(s)
	if p.IsValid() {
		return p
	}
	return ProfileMedium
}
