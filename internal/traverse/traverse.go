// Package traverse walks the frame tree of a page and the elements inside it.
package traverse

import (
	"fmt"

	"github.com/equalsraf/ffcli/internal/marionette"
)

// FrameSelector matches the elements that host nested browsing contexts.
const FrameSelector = "iframe, frame"

// Browser is the part of *marionette.Client used for traversal.
type Browser interface {
	FindElements(method marionette.QueryMethod, target string, within *marionette.ElementRef) ([]marionette.ElementRef, error)
	SwitchToFrame(frame *marionette.ElementRef) error
	SwitchToParentFrame() error
}

// EachFrame calls fn in the current frame and then, depth first, in every
// frame below it. The current frame is the same when EachFrame returns nil.
func EachFrame(b Browser, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}

	frames, err := b.FindElements(marionette.ByCSSSelector, FrameSelector, nil)
	if err != nil {
		return fmt.Errorf("failed to list frames: %w", err)
	}
	for _, frame := range frames {
		if err := b.SwitchToFrame(&frame); err != nil {
			return fmt.Errorf("failed to enter frame: %w", err)
		}
		if err := EachFrame(b, fn); err != nil {
			return err
		}
		if err := b.SwitchToParentFrame(); err != nil {
			return fmt.Errorf("failed to leave frame: %w", err)
		}
	}
	return nil
}

// AllFrames runs EachFrame from the top-level document and returns there
// afterwards, also on error.
func AllFrames(b Browser, fn func() error) error {
	if err := b.SwitchToFrame(nil); err != nil {
		return fmt.Errorf("failed to switch to top frame: %w", err)
	}
	err := EachFrame(b, fn)
	if resetErr := b.SwitchToFrame(nil); resetErr != nil && err == nil {
		err = fmt.Errorf("failed to switch to top frame: %w", resetErr)
	}
	return err
}

// EachElement calls fn for every element in the current frame that method
// and target select, in document order.
func EachElement(b Browser, method marionette.QueryMethod, target string, fn func(marionette.ElementRef) error) error {
	refs, err := b.FindElements(method, target, nil)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := fn(ref); err != nil {
			return err
		}
	}
	return nil
}
