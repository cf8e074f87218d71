package usertoken

type Key string

const (
	// CurrentAccountKey stashes the account decoded from a request's credential.
	CurrentAccountKey Key = "CurrentAccountKey"

	// IpAddrKey stashes the IP address of an HTTP request being handled.
	IpAddrKey Key = "IpAddrKey"

	// RequestIDKey stashes a unique UUID for each HTTP request.
	RequestIDKey Key = "RequestIDKey"
)

// String formats the stringified key with additional contextual information.
func (k Key) String() string {
	return "usertoken context key: " + string(k)
}
