package helper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ipfs/go-cid"
)

var cidPath = regexp.MustCompile(`^/?(?:ipfs/)?((Qm[1-9A-HJ-NP-Za-km-z]{44}|b[a-z2-7]{58,})(/.*)?)$`)

func IsUrl(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func IsIpfs(uri string) bool {
	_, ok := GetIpfsPath(uri)
	return ok
}

// GetIpfsPath returns "<cid>[/path]" for ipfs:// locators and bare CIDs.
func GetIpfsPath(uri string) (string, bool) {
	if strings.HasPrefix(uri, "ipfs://") {
		path := strings.TrimPrefix(strings.TrimPrefix(uri, "ipfs://"), "ipfs/")
		return path, path != ""
	}

	parts := cidPath.FindStringSubmatch(uri)
	if len(parts) != 4 {
		return "", false
	}
	if _, err := cid.Decode(parts[2]); err != nil {
		return "", false
	}

	return parts[1], true
}

// IpfsUri builds the canonical ipfs:// locator for a content id.
func IpfsUri(c string) string {
	return "ipfs://" + c
}
