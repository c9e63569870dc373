// ABOUTME: Turns classified failures into operator-facing messages.
// ABOUTME: Messages name the endpoint and an action, never raw error text.

package fault

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultGatewayURL is the address a stock gateway listens on.
const DefaultGatewayURL = "http://localhost:18789"

// UserMessage returns an actionable description of err for display.
func UserMessage(err error, endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultGatewayURL
	}

	var fe *Error
	if !errors.As(err, &fe) {
		if cls := FromTransport(err); cls != err {
			errors.As(cls, &fe)
		}
	}
	if fe == nil {
		return genericMessage
	}

	switch {
	case fe.Kind == KindIncompatibleAPI:
		return fmt.Sprintf("The gateway at %s is not serving a compatible dashboard API. "+
			"Point Control Center at a compatible gateway and try Refresh.", endpoint)
	case fe.Kind == KindTransientNetwork && fe.Timeout:
		return fmt.Sprintf("The gateway at %s did not respond in time. "+
			"Verify it is running and reachable, then try again.", endpoint)
	case fe.Kind == KindTransientNetwork && fe.Refused:
		return fmt.Sprintf("Could not connect to the gateway at %s.\n"+
			"Make sure the gateway is running (default: %s) and try Refresh.", endpoint, DefaultGatewayURL)
	case fe.Kind == KindCircuitOpen:
		return fmt.Sprintf("Calls to the gateway at %s are paused after repeated failures. "+
			"Check the gateway, then reconnect.", endpoint)
	case fe.Kind == KindValidation:
		return "The request was not valid: " + fe.Message
	case fe.Kind == KindCancelled:
		return "The operation was cancelled."
	}
	return genericMessage
}

const genericMessage = "Control Center could not load dashboard data right now. " +
	"Check your gateway connection and try again."
