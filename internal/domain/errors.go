package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the record store has no record with the given id.
var ErrNotFound = errors.New("iotlabs: record not found")

// ErrForwarderClosed is returned when records are enqueued after Close.
var ErrForwarderClosed = errors.New("iotlabs: forwarder closed")

// ErrBufferFull indicates the forwarder buffer rejected a record according
// to its overflow policy.
var ErrBufferFull = errors.New("iotlabs: buffer full")

// ErrWALFull indicates the forwarder WAL is at capacity.
var ErrWALFull = errors.New("iotlabs: wal full")

// ValidationError reports a malformed or out-of-range field in an inbound
// record. Records carrying one are rejected before persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DeliveryError reports a failed batch delivery to the store API. Permanent
// means the endpoint rejected the batch outright (client error) and a retry
// of the same payload cannot succeed; everything else is transient and the
// batch stays buffered for retry.
type DeliveryError struct {
	StatusCode int
	Permanent  bool
	Err        error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failure: status %d: %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failure: %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsPermanentRejection reports whether err is a delivery failure that should
// not be retried with the same payload.
func IsPermanentRejection(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}

// IsTransientDelivery reports whether err is a retryable delivery failure.
func IsTransientDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && !de.Permanent
}
