package binary

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// VersionMemo persists resolved versions between runs. Entries expire
// after an implementation defined TTL.
type VersionMemo interface {
	Get(family, mode string) (string, bool)
	Put(family, mode, version string) error
}

// ResolveQuery is the input of VersionResolver.Resolve.
type ResolveQuery struct {
	Family    Family
	Explicit  string
	AutoCheck bool
	Platform  platform.Key
	Proxy     string
	Mirrors   Mirrors
	// Memo is optional; nil disables the resolved-version cache.
	Memo VersionMemo
}

// VersionResolver decides which driver version to install.
type VersionResolver struct {
	downloader *Downloader
	probe      BrowserProbe
	logger     logrus.FieldLogger
	group      singleflight.Group
}

// NewVersionResolver creates a resolver. probe may be nil, which behaves
// as if no browser were installed.
func NewVersionResolver(downloader *Downloader, probe BrowserProbe, logger logrus.FieldLogger) *VersionResolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &VersionResolver{
		downloader: downloader,
		probe:      probe,
		logger:     logger,
	}
}

var unsafeVersionChars = regexp.MustCompile(`[^A-Za-z0-9_.]`)

// Resolve picks a version. An explicit version is returned verbatim
// without any probe or network call. With AutoCheck the installed browser
// is mapped to a compatible driver; any probe failure falls back to the
// latest release.
func (r *VersionResolver) Resolve(ctx context.Context, q ResolveQuery) (Resolved, error) {
	spec, err := lookupFamily(q.Family)
	if err != nil {
		return Resolved{}, err
	}

	if q.Explicit != "" {
		return Resolved{Version: q.Explicit, Source: SourceExplicit}, nil
	}

	log := r.logger.WithFields(logrus.Fields{
		"family":   string(q.Family),
		"platform": q.Platform.String(),
	})

	if q.AutoCheck && spec.compatible && r.probe != nil {
		resolved, ok, err := r.fromBrowser(ctx, spec, q, log)
		if err != nil {
			return Resolved{}, err
		}
		if ok {
			return resolved, nil
		}
	}

	version, cached, err := r.memoized(ctx, spec, q, "latest/"+q.Platform.String(), func() (string, error) {
		return r.latest(ctx, spec, q)
	})
	if err != nil {
		return Resolved{}, typed(ErrVersionResolution, err, "family", string(q.Family))
	}
	log.WithFields(logrus.Fields{"version": version, "cached": cached}).Debug("resolved latest driver version")
	return Resolved{Version: version, Source: SourceLatest, Cached: cached}, nil
}

// fromBrowser maps the installed browser onto a driver release. ok is
// false when the caller should fall back to the latest release; err is
// only set for cancellation.
func (r *VersionResolver) fromBrowser(ctx context.Context, spec *familySpec, q ResolveQuery, log logrus.FieldLogger) (Resolved, bool, error) {
	browser, err := r.probe.BrowserVersion(ctx, q.Family, q.Platform.OS)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return Resolved{}, false, ctx.Err()
	case errors.Is(err, ErrBrowserNotFound):
		log.Info("browser not found, using latest driver release")
		return Resolved{}, false, nil
	default:
		log.WithError(typed(ErrVersionResolution, err)).Warn("browser version probe failed, using latest driver release")
		return Resolved{}, false, nil
	}

	version, cached, err := r.memoized(ctx, spec, q, "browser/"+q.Platform.String()+"/"+browser, func() (string, error) {
		published, err := r.listVersions(ctx, spec, q)
		if err != nil {
			return "", err
		}
		v := NearestCompatible(published, browser)
		if v == "" {
			return "", errors.New("no published driver versions")
		}
		return v, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Resolved{}, false, ctx.Err()
		}
		log.WithError(err).WithField("browser_version", browser).Warn("compatible driver lookup failed, using latest driver release")
		return Resolved{}, false, nil
	}

	log.WithFields(logrus.Fields{
		"browser_version": browser,
		"version":         version,
		"cached":          cached,
	}).Debug("resolved browser compatible driver version")
	return Resolved{Version: version, Source: SourceBrowser, BrowserVersion: browser, Cached: cached}, true, nil
}

// memoized answers from the memo when possible and otherwise runs lookup
// once for all concurrent callers asking the same question.
// Memo records are scoped to the release source so that switching mirrors
// never serves a version discovered on another one.
func (r *VersionResolver) memoized(ctx context.Context, spec *familySpec, q ResolveQuery, mode string, lookup func() (string, error)) (string, bool, error) {
	base := spec.base(q.Mirrors)
	memoMode := mode + "@" + sourceTag(base)
	if q.Memo != nil {
		if v, ok := q.Memo.Get(string(spec.family), memoMode); ok {
			return v, true, nil
		}
	}

	key := string(spec.family) + "|" + base + "|" + q.Proxy + "|" + mode
	v, err, _ := r.group.Do(key, func() (any, error) {
		return lookup()
	})
	if err != nil {
		return "", false, err
	}

	version := v.(string)
	if q.Memo != nil {
		if err := q.Memo.Put(string(spec.family), memoMode, version); err != nil {
			r.logger.WithError(err).Warn("failed to persist resolved driver version")
		}
	}
	return version, false, nil
}

// sourceTag is a short stable name for a release base URL.
func sourceTag(base string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(base))
}

// latest discovers the newest published release.
func (r *VersionResolver) latest(ctx context.Context, spec *familySpec, q ResolveQuery) (string, error) {
	base := spec.base(q.Mirrors)

	switch spec.latest {
	case latestText:
		body, err := r.downloader.GetText(ctx, base+spec.latestPath, q.Proxy)
		if err != nil {
			return "", err
		}
		v := unsafeVersionChars.ReplaceAllString(body, "")
		if v == "" {
			return "", errors.New("empty latest release file")
		}
		return v, nil

	case latestRedirect:
		return r.downloader.LatestRedirect(ctx, base+spec.latestPath, q.Proxy)

	default:
		published, err := r.listVersions(ctx, spec, q)
		if err != nil {
			return "", err
		}
		v := MaxVersion(published)
		if v == "" {
			return "", errors.New("no published driver versions")
		}
		return v, nil
	}
}
