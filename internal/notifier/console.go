package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Console writes alerts to a writer. Used when Telegram is not configured so
// a development setup still surfaces every non-MAINTAIN decision.
type Console struct {
	out io.Writer
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console notifier for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Send prints the alert with a timestamp prefix.
func (c *Console) Send(_ context.Context, message string) error {
	_, err := fmt.Fprintf(c.out, "[%s] ALERT\n%s\n", time.Now().Format("15:04:05"), message)
	return err
}
