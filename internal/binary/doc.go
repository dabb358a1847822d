// Package binary resolves, downloads, verifies, extracts and caches the
// WebDriver executables used by browser automation: chromedriver,
// geckodriver, IEDriverServer, msedgedriver, operadriver and the Selenium
// standalone server.
//
// # Resolution
//
// A pinned version is used as given. Otherwise the installed browser is
// probed and mapped onto the nearest compatible published driver, and when
// that is not possible the newest release is used. Resolved versions are
// remembered for an hour next to the cache so repeated setups stay
// offline.
//
// # Verification
//
// Artifacts can be pinned to a SHA256 digest and/or required to carry a
// detached OpenPGP signature (artifact URL + ".asc") made by a key in a
// caller supplied keyring. Nothing is cached unless every requested check
// passes.
//
// # Usage
//
//	mgr, err := binary.NewManager(binary.Config{CacheDir: "/home/user/.cache/wdb"})
//	if err != nil {
//	    return err
//	}
//
//	info, err := binary.Chrome().Arch64().Setup(ctx, mgr)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(info.Property, info.Path) // webdriver.chrome.driver /home/user/.cache/wdb/webdriver/chrome/...
//
// # Architecture
//
// The package is organized into several components:
//   - Manager: orchestration under a per-key cache lock
//   - VersionResolver: pinned, browser compatible or latest versions
//   - Locate: per-family URL rules from the family table
//   - Downloader: single-attempt HTTP and s3:// downloads with per-request proxies
//   - Verifier: SHA256 and OpenPGP verification
//   - Extractor: zip, tar.gz and jar handling
package binary
