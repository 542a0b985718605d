package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/cloudbot/core/netutil"
)

// longPollSlack covers network latency on top of the server-side wait.
const longPollSlack = 15 * time.Second

// BuildHTTPClient returns the HTTP client for Bot API calls. getUpdates holds
// the response for up to the long-poll timeout, so both the header and the
// overall deadline must exceed it.
func BuildHTTPClient(opts PollerOptions) *http.Client {
	wait := opts.longPollTimeout() + longPollSlack
	return netutil.BuildHTTPClient(netutil.ClientOptions{
		Timeout:         wait + longPollSlack,
		ResponseTimeout: wait,
	})
}
