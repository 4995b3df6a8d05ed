package clipboard

import (
	"context"
	"fmt"

	sysclip "github.com/atotto/clipboard"
)

// System writes to the operating system clipboard. On platforms without a
// clipboard utility every write reports ErrClipboardUnavailable.
type System struct{}

func (System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sysclip.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := sysclip.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}
