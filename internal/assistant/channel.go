// ABOUTME: Authenticated gRPC channel to the assistant endpoint.
// ABOUTME: Dialed once at startup and shared by every turn for the process lifetime.

package assistant

import (
	"crypto/tls"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/oauth"
)

// DefaultEndpoint is the production assistant service address.
const DefaultEndpoint = "embeddedassistant.googleapis.com:443"

// Dial opens an authenticated, TLS-encrypted channel to the assistant
// endpoint. The returned connection is long-lived and safe for
// concurrent use; the caller owns closing it at shutdown.
func Dial(endpoint string, ts oauth2.TokenSource) (*grpc.ClientConn, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
		grpc.WithPerRPCCredentials(oauth.TokenSource{TokenSource: ts}),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing assistant endpoint %s: %w", endpoint, err)
	}
	return conn, nil
}
