// Command onboardctl drives Wi-Fi onboarding of devices from a controller
// host.
//
// It joins the device's soft access point, waits for the device to announce
// itself, pushes the target network credentials, follows the device onto the
// target network and waits for it to announce itself there.
//
// Usage:
//
//	onboardctl [command] [flags]
//
// Commands:
//
//	scan        List visible onboardable and target networks
//	current     Print the network the station is associated with
//	connect     Join a network and verify the association
//	onboard     Run one onboarding
//	offboard    Tell a device to forget its configuration
//	devices     List devices recorded in the state file
//	discover    List devices announcing on the current network
//	status      Query a device's onboarding state
//	shell       Interactive onboarding shell
//	trace       Inspect trace files (view, stats, export)
//	version     Print versions
//
// Examples:
//
//	# Onboard a lamp onto the home network
//	onboardctl onboard --onboardee-ssid AJ_Lamp --target-ssid HomeNet \
//	    --target-auth WPA2_CCMP --target-passphrase secret123
//
//	# Same, with settings from a file and a trace
//	onboardctl -c onboard.yaml --trace-file run.oblog onboard
//
//	# Show the trace of the last run
//	onboardctl trace view run.oblog --category state
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
