package wifi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTypeString(t *testing.T) {
	assert.Equal(t, "WPA2_AUTO", AuthWPA2Auto.String())
	assert.Equal(t, "OPEN", AuthOpen.String())
	assert.Equal(t, "UNKNOWN", AuthType(42).String())
}

func TestParseAuthType(t *testing.T) {
	a, err := ParseAuthType("wep")
	require.NoError(t, err)
	assert.Equal(t, AuthWEP, a)

	a, err = ParseAuthType("-3")
	require.NoError(t, err)
	assert.Equal(t, AuthWPA2Auto, a)

	_, err = ParseAuthType("WPA3")
	assert.ErrorIs(t, err, ErrUnknownAuth)

	_, err = ParseAuthType("99")
	assert.ErrorIs(t, err, ErrUnknownAuth)
}

func TestAuthTypeFromCapabilities(t *testing.T) {
	assert.Equal(t, AuthWPA2Auto, AuthTypeFromCapabilities("[WPA2-PSK-CCMP][ESS]"))
	assert.Equal(t, AuthWPA2Auto, AuthTypeFromCapabilities("[WPA-PSK-TKIP][WPA2-PSK-CCMP]"))
	assert.Equal(t, AuthWPAAuto, AuthTypeFromCapabilities("[WPA-PSK-TKIP]"))
	assert.Equal(t, AuthWEP, AuthTypeFromCapabilities("[WEP][ESS]"))
	assert.Equal(t, AuthOpen, AuthTypeFromCapabilities("[ESS]"))
}

func TestNetworkValidate(t *testing.T) {
	assert.ErrorIs(t, Network{SSID: `""`}.Validate(), ErrEmptySSID)
	assert.ErrorIs(t, Network{SSID: "x", Auth: AuthWEP, Passphrase: "bad"}.Validate(), ErrInvalidWEPKey)
	assert.NoError(t, Network{SSID: "x", Auth: AuthWEP, Passphrase: "abcde"}.Validate())
	assert.NoError(t, Network{SSID: "x", Auth: AuthOpen}.Validate())
}

func TestNetworkStringHidesPassphrase(t *testing.T) {
	s := Network{SSID: `"HomeNet"`, Auth: AuthWPA2Auto, Passphrase: "hunter2"}.String()
	assert.Equal(t, "HomeNet(WPA2_AUTO)", s)
}

type fakeJoiner struct {
	joined  Network
	current string
	joinErr error
}

func (f *fakeJoiner) Join(_ context.Context, n Network, _ time.Duration) error {
	f.joined = n
	return f.joinErr
}

func (f *fakeJoiner) CurrentNetwork(context.Context) (string, error) {
	return f.current, nil
}

func TestConnectAndVerify(t *testing.T) {
	ctx := context.Background()
	n := Network{SSID: "HomeNet", Auth: AuthWPA2Auto, Passphrase: "secret"}

	t.Run("Associated", func(t *testing.T) {
		j := &fakeJoiner{current: `"HomeNet"`}
		require.NoError(t, ConnectAndVerify(ctx, j, n, 0))
		assert.Equal(t, n, j.joined)
	})

	t.Run("LandedElsewhere", func(t *testing.T) {
		j := &fakeJoiner{current: "Neighbour"}
		assert.ErrorIs(t, ConnectAndVerify(ctx, j, n, time.Second), ErrJoinTimeout)
	})

	t.Run("AuthFailure", func(t *testing.T) {
		j := &fakeJoiner{joinErr: ErrJoinAuth}
		assert.ErrorIs(t, ConnectAndVerify(ctx, j, n, time.Second), ErrJoinAuth)
	})

	t.Run("InvalidWEPNotJoined", func(t *testing.T) {
		j := &fakeJoiner{}
		err := ConnectAndVerify(ctx, j, Network{SSID: "x", Auth: AuthWEP, Passphrase: "1234567"}, 0)
		assert.ErrorIs(t, err, ErrInvalidWEPKey)
		assert.Empty(t, j.joined.SSID)
	})
}

func TestAuthTypeText(t *testing.T) {
	var a AuthType
	require.NoError(t, a.UnmarshalText([]byte("wpa2_ccmp")))
	assert.Equal(t, AuthWPA2CCMP, a)

	require.NoError(t, a.UnmarshalText([]byte("1")))
	assert.Equal(t, AuthWEP, a)

	assert.ErrorIs(t, a.UnmarshalText([]byte("bogus")), ErrUnknownAuth)

	out, err := AuthOpen.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "OPEN", string(out))
}
