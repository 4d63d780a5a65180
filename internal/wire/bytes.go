package wire

import "encoding/base64"

// Bytes is raw data. It is a byte string in CBOR and standard base64 text
// in JSON and YAML.
type Bytes []byte

// MarshalText encodes b as base64.
func (b Bytes) MarshalText() ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out, nil
}

// UnmarshalText decodes base64 text.
func (b *Bytes) UnmarshalText(text []byte) error {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(out, text)
	if err != nil {
		return err
	}
	*b = out[:n]
	return nil
}

// MarshalBinary returns b unchanged.
func (b Bytes) MarshalBinary() ([]byte, error) {
	return []byte(b), nil
}

// UnmarshalBinary copies data into b.
func (b *Bytes) UnmarshalBinary(data []byte) error {
	*b = append((*b)[:0], data...)
	return nil
}
