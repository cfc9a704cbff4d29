package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req, err := NewRequest(7, MethodConfigureWiFi, &ConfigureWiFiPayload{
		SSID:       "HomeNet",
		Passphrase: "73656372657421",
		AuthType:   -3,
	})
	require.NoError(t, err)

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), decoded.MessageID)
	assert.Equal(t, MethodConfigureWiFi, decoded.Method)

	var p ConfigureWiFiPayload
	require.NoError(t, DecodePayload(decoded.Payload, &p))
	assert.Equal(t, "HomeNet", p.SSID)
	assert.Equal(t, int16(-3), p.AuthType)
}

func TestRequestValidate(t *testing.T) {
	_, err := EncodeRequest(&Request{MessageID: 0, Method: MethodConnect})
	assert.ErrorIs(t, err, ErrInvalidMessageID)

	_, err = EncodeRequest(&Request{MessageID: 1, Method: Method(99)})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	data, err := Marshal(&Request{MessageID: 1, Method: Method(0)})
	require.NoError(t, err)
	_, err = DecodeRequest(data)
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestRequestWithoutPayload(t *testing.T) {
	req, err := NewRequest(2, MethodConnect, nil)
	require.NoError(t, err)
	data, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Empty(t, decoded.Payload)

	var p ConfigureWiFiPayload
	assert.ErrorIs(t, DecodePayload(decoded.Payload, &p), ErrMissingPayload)
}

func TestResponseErr(t *testing.T) {
	data, err := EncodeResponse(&Response{MessageID: 3, Status: StatusInvalidParameter, Message: "bad ssid"})
	require.NoError(t, err)

	resp, err := DecodeResponse(data)
	require.NoError(t, err)

	var se *StatusError
	require.True(t, errors.As(resp.Err(), &se))
	assert.Equal(t, StatusInvalidParameter, se.Status)
	assert.Equal(t, "device returned INVALID_PARAMETER: bad ssid", se.Error())

	assert.NoError(t, (&Response{Status: StatusSuccess}).Err())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "CONFIGURE_WIFI", MethodConfigureWiFi.String())
	assert.Equal(t, "UNKNOWN", Method(0).String())
	assert.Equal(t, "BUSY", StatusBusy.String())
	assert.Equal(t, "CONFIGURED_VALIDATED", DeviceConfiguredValidated.String())
}

func TestConfigureWiFiPayloadValidate(t *testing.T) {
	assert.ErrorIs(t, (&ConfigureWiFiPayload{}).Validate(), ErrEmptySSID)
	assert.NoError(t, (&ConfigureWiFiPayload{SSID: "x"}).Validate())
}
