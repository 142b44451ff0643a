// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package envelope

import (
	"encoding/json"
	"time"
)

// envelopeFields has Envelope's fields without its JSON methods.
type envelopeFields Envelope

// envelopeJSON is Envelope's JSON form, carrying the TTL in milliseconds.
type envelopeJSON struct {
	*envelopeFields
	TTL int64 `json:"ttl,omitempty"`
}

// MarshalJSON encodes an Envelope with its TTL in milliseconds.
func (env Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		envelopeFields: (*envelopeFields)(&env),
		TTL:            env.TTL.Milliseconds(),
	})
}

// UnmarshalJSON decodes an Envelope whose TTL is given in milliseconds.
func (env *Envelope) UnmarshalJSON(data []byte) error {
	tmp := envelopeJSON{envelopeFields: (*envelopeFields)(env)}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	env.TTL = time.Duration(tmp.TTL) * time.Millisecond
	return nil
}
