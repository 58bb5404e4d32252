/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const waitInitialInterval = 50 * time.Millisecond

// WaitForState polls UpdateState with exponential backoff until the cached
// state reaches target or maxWait elapses.
func (c *Credential) WaitForState(target State, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = waitInitialInterval
	bo.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		if err := c.UpdateState(); err != nil {
			return backoff.Permanent(err)
		}

		if c.state != target {
			return fmt.Errorf("state is %s, waiting for %s", c.state, target)
		}

		return nil
	}, bo)
}
