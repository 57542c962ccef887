package dispatch

import (
	"fmt"
	"strings"

	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
)

// ReduceAll reduces a lifecycle operation's outcome set: overall success
// requires every targeted peer to individually succeed. The first failure
// encountered is the representative error; the failed peer list rides along
// as metadata.
func ReduceAll(outcomes []Outcome) error {
	var failed []string
	var first error
	for _, o := range outcomes {
		if o.OK {
			continue
		}
		failed = append(failed, o.Peer)
		if first == nil {
			first = o.Err
		}
	}
	if first == nil {
		return nil
	}
	return &apperrors.Error{
		Code:     apperrors.CodePartialNodeFailure,
		Message:  fmt.Sprintf("%d of %d peers failed: %v", len(failed), len(outcomes), first),
		Metadata: map[string]string{"FailedPeers": strings.Join(failed, ",")},
		Cause:    first,
	}
}
