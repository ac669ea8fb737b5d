package ports

import "github.com/reglet-dev/permstore/domain/entities"

// GrantIssuer is the host platform's token primitive. Real implementations
// bind tokens to OS security mechanisms; tests supply a scripted fake.
type GrantIssuer interface {
	// Mint issues a durable token for resource. It may require that the
	// caller currently holds transient access, e.g. right after the user
	// picked the resource.
	Mint(resource entities.ResourceID) (entities.Token, error)

	// Redeem exchanges a token for a handle on its resource. stale is true
	// when the token is nominally valid but no longer resolves to the
	// resource it was minted for.
	Redeem(token entities.Token) (handle ResourceHandle, stale bool, err error)
}

// ResourceHandle is live, redeemable access to one resource.
type ResourceHandle interface {
	// Resource returns the identity the handle resolved to.
	Resource() entities.ResourceID

	// StartAccess begins access and reports whether the platform allowed it.
	StartAccess() bool

	// StopAccess ends access started by StartAccess.
	StopAccess()
}
