package callguard

import "net/http"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	policyPath string
	serverURL  string
	httpClient *http.Client
}

// WithPolicy sets the path to a policy YAML file for in-process
// validation.
func WithPolicy(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithServer points the client at a remote admission service instead of
// validating in process.
func WithServer(baseURL string) Option {
	return func(c *clientConfig) { c.serverURL = baseURL }
}

// WithHTTPClient overrides the HTTP client used for remote validation.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}
