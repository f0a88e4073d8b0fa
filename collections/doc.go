// Package collections provides Set and List types whose contents live in a
// Redis-compatible store rather than in process memory.
//
// A collection is a key bound to a backend.Backend handle. Every operation is
// translated into the store's primitive set and list commands; nothing is
// cached locally, so two collections bound to the same key on the same store
// observe each other's writes.
//
// Handles are borrowed. Construct collections with a Resolver (normally a
// *registry.Registry) or pass a handle directly with WithBackend:
//
//	reg := registry.New()
//	defer reg.Close()
//
//	l, err := collections.NewList(ctx, reg, collections.WithName("jobs"))
//	if err != nil {
//		return err
//	}
//	if err := l.Insert(ctx, 1, "urgent"); err != nil {
//		return err
//	}
//
// A collection created without WithName is anonymous: it gets a generated key
// under a namespace (DefaultAnonymousNamespace unless overridden), and its id
// is recorded in a set at the namespace key so that AnonymousIDs and
// CollectAnonymous can find it later. Nothing is deleted implicitly.
//
// List operations other than head and tail access are built from sequences of
// primitives (rotations, pops and temporary marker values) and are neither
// atomic nor safe against concurrent writers on the same key.
//
// Each collection also exposes a fixed allow-list of raw commands for its kind
// through Command and Call, with the key bound as the first argument.
package collections
