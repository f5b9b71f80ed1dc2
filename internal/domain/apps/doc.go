/*
Package apps implements the host side of the embedded-app protocol: the
lifecycle state machine that takes an extension's UI resource from fetch to a
rendered sandbox frame, and everything that governs the frame afterwards.

# Components

  - Reduce: the lifecycle reducer. AppState is a tagged union (idle,
    loading_resource, loading_sandbox, ready, error) advanced only through
    Actions; illegal combinations are unrepresentable by construction.
  - Loader: fetches guest HTML and metadata with bounded exponential backoff,
    charset normalization, and head-metadata fallback extraction.
  - Resolver: derives, exactly once per instance, the sandbox proxy URL
    carrying the auth secret and CSP domain allow-lists.
  - DisplayController: owns the display posture (inline, fullscreen, pip,
    standalone), negotiates modes with the guest, and manages PiP geometry
    and inline height snapshots.
  - Tracker: the set of live guest channels for an instance, rebuilt on
    attach/detach, giving O(1) source verification for inbound messages.
  - ContextBuilder: assembles the host context payload pushed to guests.
  - Instance / Manager: per-instance orchestration with a remount-safe cache
    and manager-level focus bookkeeping.

# Concurrency

Each instance confines its state behind a mutex and is driven by a single
lifecycle goroutine; async producers re-enter only via dispatch, which checks
a mount generation so results from a cancelled mount are discarded.
*/
package apps
