package marionette

import "fmt"

// WithContext runs fn with target as the current context and then restores
// the previous one, whether or not fn succeeded. A failed restore is logged
// and does not replace fn's result.
func (c *Client) WithContext(target Context, fn func() error) error {
	prev, err := c.Context()
	if err != nil {
		return fmt.Errorf("read current context: %w", err)
	}
	if err := c.SetContext(target); err != nil {
		return fmt.Errorf("switch to %s context: %w", target, err)
	}

	defer func() {
		if err := c.SetContext(prev); err != nil {
			c.log.Warn().Err(err).Stringer("context", prev).Msg("failed to restore context")
		}
	}()

	return fn()
}
