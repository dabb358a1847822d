package binary

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// maxListingPages bounds marker pagination of bucket listings.
const maxListingPages = 50

// bucketListing covers both the S3/GCS ListBucketResult document and the
// Azure EnumerationResults document.
type bucketListing struct {
	Keys       []string `xml:"Contents>Key"`
	Blobs      []string `xml:"Blobs>Blob>Name"`
	NextMarker string   `xml:"NextMarker"`
}

func (l bucketListing) entries() []string {
	out := make([]string, 0, len(l.Keys)+len(l.Blobs))
	out = append(out, l.Keys...)
	return append(out, l.Blobs...)
}

func parseListing(body string) (bucketListing, error) {
	var l bucketListing
	if err := xml.Unmarshal([]byte(body), &l); err != nil {
		return bucketListing{}, fmt.Errorf("parse bucket listing: %w", err)
	}
	return l, nil
}

// listVersions returns the distinct versions published for key according
// to the family's bucket listing.
func (r *VersionResolver) listVersions(ctx context.Context, spec *familySpec, q ResolveQuery) ([]string, error) {
	if spec.listingVersion == nil {
		return nil, fmt.Errorf("%s publishes no listing", spec.family)
	}

	listingURL := spec.base(q.Mirrors) + spec.listingPath
	seen := make(map[string]bool)
	var versions []string

	marker := ""
	for page := 0; page < maxListingPages; page++ {
		body, err := r.downloader.GetText(ctx, withMarker(listingURL, marker), q.Proxy)
		if err != nil {
			return nil, err
		}
		listing, err := parseListing(body)
		if err != nil {
			return nil, err
		}
		for _, entry := range listing.entries() {
			v, ok := spec.listingVersion(entry, q.Platform)
			if ok && !seen[v] {
				seen[v] = true
				versions = append(versions, v)
			}
		}
		if listing.NextMarker == "" || listing.NextMarker == marker {
			break
		}
		marker = listing.NextMarker
	}
	return versions, nil
}

func withMarker(rawURL, marker string) string {
	if marker == "" {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "marker=" + url.QueryEscape(marker)
}
