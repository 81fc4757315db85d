package media

// Backend names one of the two storage tiers.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// chooseBackend is the explicit fallback decision for one file's variants:
// remote when the remote tier is enabled and its write succeeded, local
// otherwise. The cause of a remote failure never changes the decision. Pure,
// so the policy is testable without I/O.
func chooseBackend(remoteEnabled bool, remoteErr error) Backend {
	if remoteEnabled && remoteErr == nil {
		return BackendRemote
	}
	return BackendLocal
}
