package notification

import "context"

// Formatter translates a Message into a provider-specific webhook request.
// Implementations live in infra/webhook/.
type Formatter interface {
	// Provider returns which webhook service this formatter targets.
	Provider() ProviderType

	// FormatMessage builds the provider-native payload.
	FormatMessage(msg *Message) (any, error)

	// FormatHeaders returns the HTTP headers every request carries.
	FormatHeaders() map[string]string

	// PrepareRequest builds the complete outbound request.
	PrepareRequest(msg *Message) (*Request, error)
}

// LocalFileAttacher is implemented by formatters that deliver local image
// files themselves instead of needing them uploaded first.
type LocalFileAttacher interface {
	AcceptsLocalFiles() bool
}

// Uploader rehosts an image and returns its public URL.
// Implementations live in infra/upload/.
type Uploader interface {
	// Upload accepts a remote URL or a local file path.
	Upload(ctx context.Context, source string) (string, error)
}
