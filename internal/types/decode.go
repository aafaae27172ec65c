package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type rawUpdatePayload struct {
	OldName *string `json:"oldName"`
	NewName *string `json:"newName"`
	Method  *string `json:"method"`
	IP      *string `json:"ip"`
	Mask    *string `json:"mask"`
	Gateway *string `json:"gateway"`
}

type rawAddPayload struct {
	Device  *string `json:"device"`
	Name    *string `json:"name"`
	Method  *string `json:"method"`
	IP      *string `json:"ip"`
	Mask    *string `json:"mask"`
	Gateway *string `json:"gateway"`
}

// DecodeUpdatePayload reads exactly one UpdatePayload object. oldName and method are
// required; unknown fields and trailing data are rejected.
func DecodeUpdatePayload(r io.Reader) (UpdatePayload, error) {
	var raw rawUpdatePayload
	if err := decodeStrict(r, &raw); err != nil {
		return UpdatePayload{}, err
	}
	if err := requireField("oldName", raw.OldName); err != nil {
		return UpdatePayload{}, err
	}
	if err := requireField("method", raw.Method); err != nil {
		return UpdatePayload{}, err
	}
	return UpdatePayload{
		OldName: *raw.OldName,
		NewName: deref(raw.NewName),
		Method:  *raw.Method,
		IP:      deref(raw.IP),
		Mask:    deref(raw.Mask),
		Gateway: deref(raw.Gateway),
	}, nil
}

// DecodeAddPayload reads exactly one AddPayload object. name and method are required;
// device is required unless the caller supplies it out of band (non-empty device).
func DecodeAddPayload(r io.Reader, device string) (AddPayload, error) {
	var raw rawAddPayload
	if err := decodeStrict(r, &raw); err != nil {
		return AddPayload{}, err
	}
	if device == "" {
		if err := requireField("device", raw.Device); err != nil {
			return AddPayload{}, err
		}
		device = *raw.Device
	} else if raw.Device != nil && *raw.Device != device {
		return AddPayload{}, &Error{Kind: KindInvalidPayload, Field: "device", Value: *raw.Device,
			Err: fmt.Errorf("does not match %q", device)}
	}
	if err := requireField("name", raw.Name); err != nil {
		return AddPayload{}, err
	}
	if err := requireField("method", raw.Method); err != nil {
		return AddPayload{}, err
	}
	return AddPayload{
		Device:  device,
		Name:    *raw.Name,
		Method:  *raw.Method,
		IP:      deref(raw.IP),
		Mask:    deref(raw.Mask),
		Gateway: deref(raw.Gateway),
	}, nil
}

func decodeStrict(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &Error{Kind: KindInvalidPayload, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &Error{Kind: KindInvalidPayload, Err: errors.New("unexpected data after payload")}
	}
	return nil
}

func requireField(field string, v *string) error {
	if v == nil || *v == "" {
		return &Error{Kind: KindInvalidPayload, Field: field, Err: errors.New("field is required")}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
