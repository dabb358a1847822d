package binary

import (
	"fmt"

	"go.trai.ch/zerr"
)

var (
	// ErrUnsupportedPlatform is returned when a family publishes no artifact
	// for the requested platform and word width. It is never retried.
	ErrUnsupportedPlatform = zerr.New("no published driver artifact for platform")

	// ErrVersionResolution is returned when no driver version could be
	// determined. A crashing browser probe is recovered locally and only
	// logged with this error.
	ErrVersionResolution = zerr.New("driver version resolution failed")

	// ErrDownload is returned on a non-2xx response or transport failure.
	ErrDownload = zerr.New("driver download failed")

	// ErrExtraction is returned when the archive is corrupt or does not
	// contain the expected executable.
	ErrExtraction = zerr.New("driver extraction failed")

	// ErrVerification is returned when a pinned checksum or a detached
	// signature does not match the downloaded artifact.
	ErrVerification = zerr.New("driver verification failed")

	// ErrUnknownFamily is returned for names that are not a driver family.
	ErrUnknownFamily = zerr.New("unknown driver family")
)

// typed attaches a taxonomy sentinel to cause (which may be nil) and
// annotates the result with key/value metadata. errors.Is matches both the
// sentinel and the cause.
func typed(sentinel, cause error, kv ...any) error {
	var err error
	if cause == nil {
		err = zerr.Wrap(sentinel, "")
	} else {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		err = zerr.With(err, fmt.Sprint(kv[i]), kv[i+1])
	}
	return err
}
