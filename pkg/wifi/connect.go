package wifi

import (
	"context"
	"fmt"
	"time"
)

// ConnectAndVerify joins n and confirms that the station ended up on it. A
// join that lands on a different network counts as a timeout.
func ConnectAndVerify(ctx context.Context, j Joiner, n Network, timeout time.Duration) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultJoinTimeout
	}
	if err := j.Join(ctx, n, timeout); err != nil {
		return err
	}
	current, err := j.CurrentNetwork(ctx)
	if err != nil {
		return fmt.Errorf("wifi: read current network: %w", err)
	}
	if !SSIDEqual(current, n.SSID) {
		return fmt.Errorf("%w: associated with %q instead of %q", ErrJoinTimeout, current, NormalizeSSID(n.SSID))
	}
	return nil
}
