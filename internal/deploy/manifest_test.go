package deploy

import (
	"bytes"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/launchpad"
	"meme-ledger/internal/pricing"
)

const validRoles = `
[roles]
owner = "4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi"
gate = "8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR"
treasury = "CktRuQ2mttgRGkXJtyksdKHjUdc2C4TgDzyB98oEzy8"
admin = "GgBaCs3NCBuZN12kCJgAW63ydqohFkHEdfdEXBPzLHq"
custody = "LbUiWL3xVV8hTFYBVdbTNrpDo41NKS6o3LHHuDzjfcY"
`

func TestLoad(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "deploy.toml"))
	require.NoError(t, err)

	assert.Equal(t, "TNAT", m.Network.NativeSymbol)
	assert.Equal(t, domain.MustParseAddress("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR"), m.Roles.Gate)
	assert.Equal(t, "http://localhost:8899", m.AMM.Endpoint)

	fee, err := m.PlatformFee()
	require.NoError(t, err)
	assert.Equal(t, 0, fee.Cmp(new(big.Int).Div(pricing.Unit, big.NewInt(20))))

	credits, err := m.GenesisCredits()
	require.NoError(t, err)
	require.Len(t, credits, 1)
	want, err := pricing.ParseUnits("12.5")
	require.NoError(t, err)
	for _, amt := range credits {
		assert.Equal(t, 0, amt.Cmp(want))
	}
}

func TestParse_Defaults(t *testing.T) {
	m, err := Parse([]byte(validRoles))
	require.NoError(t, err)

	assert.Equal(t, "NATIVE", m.Network.NativeSymbol)
	fee, err := m.PlatformFee()
	require.NoError(t, err)
	assert.Equal(t, 0, fee.Cmp(launchpad.DefaultPlatformFee))
	assert.Empty(t, m.AMM.Endpoint)
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing role", strings.Replace(validRoles, `custody = "LbUiWL3xVV8hTFYBVdbTNrpDo41NKS6o3LHHuDzjfcY"`, "", 1)},
		{"zero role", strings.Replace(validRoles, "LbUiWL3xVV8hTFYBVdbTNrpDo41NKS6o3LHHuDzjfcY", "11111111111111111111111111111111", 1)},
		{"malformed role", strings.Replace(validRoles, "LbUiWL3xVV8hTFYBVdbTNrpDo41NKS6o3LHHuDzjfcY", "not-base58!", 1)},
		{"shared role", strings.Replace(validRoles, "LbUiWL3xVV8hTFYBVdbTNrpDo41NKS6o3LHHuDzjfcY", "CktRuQ2mttgRGkXJtyksdKHjUdc2C4TgDzyB98oEzy8", 1)},
		{"bad fee", validRoles + "\n[network]\nplatform_fee = \"-1\"\n"},
		{"amm without router", validRoles + "\n[amm]\nendpoint = \"http://x\"\n"},
		{"unknown key", validRoles + "\n[extra]\nfoo = 1\n"},
		{"bad genesis", validRoles + "\n[[genesis]]\naddress = \"2MNus2KCpxwXnp19iyXNpWSFtBD2UGjQBAL8AbtywfT9\"\namount = \"lots\"\n"},
		{"not toml", "roles = ["},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "deploy.toml"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	again, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestDev(t *testing.T) {
	a, err := Dev()
	require.NoError(t, err)
	b, err := Dev()
	require.NoError(t, err)

	assert.Equal(t, a.Roles, b.Roles)
	assert.NotEqual(t, a.Roles.Owner, a.Roles.Gate)
}
