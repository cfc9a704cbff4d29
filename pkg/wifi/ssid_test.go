package wifi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSSID(t *testing.T) {
	assert.Equal(t, "AJ_device", NormalizeSSID(`"AJ_device"`))
	assert.Equal(t, "AJ_device", NormalizeSSID("AJ_device"))
	assert.Equal(t, `"`, NormalizeSSID(`"`))
	assert.Equal(t, "", NormalizeSSID(`""`))
	assert.True(t, SSIDEqual(`"AJ_device"`, "AJ_device"))
	assert.False(t, SSIDEqual("AJ_device", "AJ_other"))
}

func TestIsOnboardable(t *testing.T) {
	assert.True(t, IsOnboardable("AJ_lamp"))
	assert.True(t, IsOnboardable(`"kettle_AJ"`))
	assert.False(t, IsOnboardable("HomeNet"))
	assert.False(t, IsOnboardable("aj_lowercase"))
}

func TestClassify(t *testing.T) {
	results := []ScanResult{
		{SSID: `"AJ_lamp"`, Capabilities: "[ESS]", Level: -40},
		{SSID: "HomeNet", Capabilities: "[WPA2-PSK-CCMP][ESS]", Level: -50},
		{SSID: "AJ_lamp", Capabilities: "[WEP]", Level: -70},
		{SSID: "", Capabilities: "[ESS]"},
		{SSID: "kettle_AJ", Capabilities: "[WPA-PSK-TKIP]"},
		{SSID: `"HomeNet"`, Capabilities: "[ESS]"},
	}

	c := Classify(results)

	require.Len(t, c.Onboardable, 2)
	assert.Equal(t, "AJ_lamp", c.Onboardable[0].SSID)
	assert.Equal(t, AuthOpen, c.Onboardable[0].Auth, "first occurrence wins")
	assert.Equal(t, -40, c.Onboardable[0].Level)
	assert.Equal(t, "kettle_AJ", c.Onboardable[1].SSID)
	assert.Equal(t, AuthWPAAuto, c.Onboardable[1].Auth)

	require.Len(t, c.Targets, 1)
	assert.Equal(t, "HomeNet", c.Targets[0].SSID)
	assert.Equal(t, AuthWPA2Auto, c.Targets[0].Auth)
}
