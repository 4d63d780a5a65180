package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBytesText(t *testing.T) {
	b := Bytes{0xde, 0xad, 0xbe, 0xef}
	text, err := b.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "3q2+7w==", string(text))

	var back Bytes
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, b, back)

	assert.Error(t, back.UnmarshalText([]byte("not base64!")))
}

func TestBytesInJSONAndYAML(t *testing.T) {
	r := Region{Address: 0x1000, Data: Bytes{1, 2, 3}}

	js, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"address":4096,"data":"AQID"}`, string(js))

	ys, err := yaml.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, "address: 4096\ndata: AQID\n", string(ys))

	var fromYAML Region
	require.NoError(t, yaml.Unmarshal(ys, &fromYAML))
	assert.Equal(t, r, fromYAML)
}

func TestDigestDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, Digest(DomainIR, data), Digest(DomainModule, data))
	assert.Equal(t, Digest(DomainIR, data), Digest(DomainIR, data))

	h := sha256.Sum256(append([]byte(DomainIR+"\x00"), data...))
	assert.Equal(t, hex.EncodeToString(h[:]), Digest(DomainIR, data))
	assert.Len(t, Digest(DomainIR, nil), 64)
}

func TestOptionalHelpers(t *testing.T) {
	p := Addr(0x400000)
	require.NotNil(t, p)
	assert.Equal(t, uint64(0x400000), *p)
}
