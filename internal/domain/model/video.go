package model

import (
	"strings"
)

// VideoKey is the logical, case-sensitive name of a bundled video asset.
type VideoKey string

func (k VideoKey) String() string {
	return string(k)
}

// Validate reports whether the key can address an asset.
// Keys are base filenames without extension, so separators and dot segments are rejected.
func (k VideoKey) Validate() error {
	s := string(k)
	if s == "" || s == "." || s == ".." {
		return ErrInvalidKey
	}
	if strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return ErrInvalidKey
	}
	return nil
}

// ReadyState represents the readiness of a cached player.
type ReadyState string

const (
	StateUnknown ReadyState = "UNKNOWN"
	StateReady   ReadyState = "READY"
	StateFailed  ReadyState = "FAILED"
)

// Valid state transitions:
// UNKNOWN -> READY -> FAILED
//
//	\-> FAILED
var validTransitions = map[ReadyState][]ReadyState{
	StateUnknown: {StateReady, StateFailed},
	StateReady:   {StateFailed},
	StateFailed:  {},
}

func (s ReadyState) IsValid() bool {
	switch s {
	case StateUnknown, StateReady, StateFailed:
		return true
	default:
		return false
	}
}

func (s ReadyState) CanTransitionTo(next ReadyState) bool {
	for _, state := range validTransitions[s] {
		if state == next {
			return true
		}
	}
	return false
}

func (s ReadyState) String() string {
	return string(s)
}

// Priority orders preload work relative to on-screen requests.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// ParsePriority maps a wire value to a Priority. Unknown values map to PriorityNormal.
func ParsePriority(s string) Priority {
	switch strings.ToLower(s) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}
