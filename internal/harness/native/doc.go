/*
Package native discovers, bridges and preloads native shared libraries before a
script runs.

# Overview

Script dependencies that ship compiled extensions often carry their own copies
of foundational libraries (BLAS, the Fortran runtime, the C++ runtime) deep in
package caches. Loading those libraries into the global symbol namespace first
lets extensions loaded later resolve their symbols without a global library
path.

The package has four parts:

 1. Locator: walks caller-supplied base directories and returns the directories
    that hold loadable libraries, each base before its descendants.
 2. Bridge: finds a specific library (BLAS by default) and copies it under the
    exact filename its consumer extension expects, both beside the original and
    beside every consumer.
 3. Preloader: opens every candidate with RTLD_GLOBAL in priority order.
 4. Registry: the process-wide set of already opened paths.

# Failure Policy

Nothing in this package fails a run. Every copy and every load is recorded as a
typed attempt outcome so the caller can log it; a missing library surfaces later
as an import error of the code that needed it.

# Usage Example

	registry := native.NewRegistry()
	locator := native.NewLocator(native.DefaultLocatorConfig())

	bridge := native.NewBridge(locator, native.DefaultBridgeConfig())
	bridgeReport := bridge.Run(dirs)

	preloader := native.NewPreloader(locator, registry, native.DLOpener{})
	report := preloader.Preload(dirs)
*/
package native
