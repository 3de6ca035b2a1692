// Package binary installs release binaries into a cached, versioned location.
//
// A [Binary] is a tool name, a normalized version and the [platform.Target] it is
// built for. Installing it restores a snapshot from a [cache.Store] when one exists,
// and otherwise fetches it from an [Origin] and stores the result for the next run.
//
// The default origin downloads the HashiCorp release archive picked from a fixed
// table of supported targets, see [ResolveDownloadURL].
//
// example usage
//
//	bin, err := binary.New(
//		binary.Name,
//		"1.2.6",
//		platform.Host(),
//		binary.WithStore(cache.NewDir("/opt/hostedtoolcache/setup-nomad")),
//	)
//	if err != nil {
//		return err
//	}
//
//	res, err := bin.Install(ctx)
//	if err != nil {
//		return fmt.Errorf("failed to install nomad: %w", err)
//	}
//
//	// the location still has to be put on the search path
//	path, err := binary.Verify(ctx, binary.Name, []string{res.Location})
package binary
