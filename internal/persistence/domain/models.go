package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("snapshot_not_found")
	ErrUnknownTarget   = errors.New("unknown_target")
	ErrEncodePayload   = errors.New("encode_payload_failed")
	ErrMirrorDisabled  = errors.New("mirror_disabled")
	ErrInvalidSnapshot = errors.New("invalid_snapshot")
)

// Target names where a snapshot is written.
type Target string

const (
	TargetPrimary Target = "primary"
	TargetRemote  Target = "remote"
)

// Snapshot is the full record list of one collection at a revision.
type Snapshot struct {
	StoreKey   string
	Collection string
	Revision   string
	Records    int
	Payload    []byte
	UpdatedAt  time.Time
}

// Repository is the durable persist capability.
type Repository interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context, storeKey, collection string) (Snapshot, error)
}

// Mirror is the optional remoteSync capability.
type Mirror interface {
	Push(ctx context.Context, s Snapshot) error
	Pull(ctx context.Context, storeKey, collection string) (Snapshot, error)
}

type Status string

const (
	StatusQueued   Status = "queued"
	StatusOK       Status = "ok"
	StatusRetrying Status = "retrying"
	StatusFailed   Status = "failed"
)

// Result reports the outcome of one persistence step.
type Result struct {
	Collection string    `json:"collection"`
	Target     Target    `json:"target"`
	Revision   string    `json:"revision"`
	Status     Status    `json:"status"`
	Attempt    int       `json:"attempt"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Health receives every persistence result.
type Health interface {
	Record(r Result)
}

type HealthReport struct {
	Healthy bool     `json:"healthy"`
	Pending int      `json:"pending"`
	Results []Result `json:"results"`
}

// Persister is what the engine and feature module depend on. Persist never
// blocks on storage and never fails the caller's in-memory change.
type Persister interface {
	Persist(collection string, records any) Result
	Load(ctx context.Context, collection string) ([]byte, bool, error)
	Health() HealthReport
}
