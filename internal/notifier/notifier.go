/*

This package delivers operator alerts. Delivery is strictly best-effort:
send failures are logged by callers and never abort a reconciliation.

*/

package notifier

import "context"

// Notifier accepts a formatted message and best-effort delivers it.
type Notifier interface {
	Send(ctx context.Context, message string) error
}
