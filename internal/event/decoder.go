// Package event turns raw queue messages into typed store lifecycle events.
package event

import (
	"encoding/json"
	"fmt"

	"queue-keeper/internal/domain"
)

// fields is a decoded JSON object whose values are parsed lazily, one field
// at a time, so that errors can name the offending field.
type fields map[string]json.RawMessage

// Decode parses body according to the variant selected by routingKey.
// The routing key is checked before the body, so an unknown key is reported
// even when the body is garbage. All failures are *domain.DecodeError.
func Decode(body []byte, routingKey string) (domain.StoreEvent, error) {
	key := domain.RoutingKey(routingKey)
	if !key.IsValid() {
		return nil, &domain.DecodeError{RoutingKey: routingKey, Err: domain.ErrUnknownRoutingKey}
	}

	var obj fields
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &domain.DecodeError{
			RoutingKey: routingKey,
			Err:        fmt.Errorf("%w: %v", domain.ErrMalformedBody, err),
		}
	}
	if obj == nil {
		// "null" unmarshals into a nil map without error
		return nil, &domain.DecodeError{
			RoutingKey: routingKey,
			Err:        fmt.Errorf("%w: body is not a JSON object", domain.ErrMalformedBody),
		}
	}

	var (
		ev  domain.StoreEvent
		err error
	)
	switch key {
	case domain.RoutingKeyStoreCreate:
		ev, err = decodeCreated(obj)
	case domain.RoutingKeyStoreUpdate:
		ev, err = decodeUpdated(obj)
	case domain.RoutingKeyStoreDeactivate:
		ev, err = decodeDeactivated(obj)
	}
	if err != nil {
		return nil, &domain.DecodeError{RoutingKey: routingKey, Err: err}
	}
	return ev, nil
}

func decodeCreated(obj fields) (domain.StoreEvent, error) {
	var ev domain.StoreCreated
	if err := obj.requiredID(&ev.ID); err != nil {
		return nil, err
	}
	if err := obj.required("s_id", &ev.DisplaySequence); err != nil {
		return nil, err
	}
	if err := obj.required("name", &ev.Name); err != nil {
		return nil, err
	}
	if err := obj.nullable("alias", &ev.Alias); err != nil {
		return nil, err
	}
	if err := obj.required("company_id", &ev.CompanyID); err != nil {
		return nil, err
	}
	return &ev, nil
}

func decodeUpdated(obj fields) (domain.StoreEvent, error) {
	var ev domain.StoreUpdated
	if err := obj.requiredID(&ev.ID); err != nil {
		return nil, err
	}
	if err := obj.required("name", &ev.Name); err != nil {
		return nil, err
	}
	if err := obj.nullable("alias", &ev.Alias); err != nil {
		return nil, err
	}
	return &ev, nil
}

func decodeDeactivated(obj fields) (domain.StoreEvent, error) {
	var ev domain.StoreDeactivated
	if err := obj.requiredID(&ev.ID); err != nil {
		return nil, err
	}
	return &ev, nil
}

// required decodes a key that must be present and non-null. A value of the
// wrong JSON type counts as missing.
func (f fields) required(name string, dst any) error {
	raw, ok := f[name]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("%w: %s", domain.ErrMissingField, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMissingField, name, err)
	}
	return nil
}

// requiredID decodes the store id, which must also be non-empty.
func (f fields) requiredID(dst *string) error {
	if err := f.required("id", dst); err != nil {
		return err
	}
	if *dst == "" {
		return fmt.Errorf("%w: id", domain.ErrMissingField)
	}
	return nil
}

// nullable decodes an optional key; absent and null both leave dst nil.
func (f fields) nullable(name string, dst **string) error {
	raw, ok := f[name]
	if !ok || string(raw) == "null" {
		*dst = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMissingField, name, err)
	}
	*dst = &s
	return nil
}
