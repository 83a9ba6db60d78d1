package httpapi

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/netutil"
)

// clientIP returns the address used to throttle r.  It is the peer address
// unless the peer is a trusted proxy, in which case X-Forwarded-For is walked
// from the right and the first hop outside trusted is returned.  Anything a
// client writes to the left of that hop is ignored.
func clientIP(r *http.Request, trusted netutil.SubnetSet) string {
	host, err := netutil.SplitHost(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	peer = peer.Unmap()
	if trusted == nil || !trusted.Contains(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get(httphdr.XForwardedFor), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, perr := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if perr != nil {
			break
		}
		hop = hop.Unmap()
		if !trusted.Contains(hop) {
			return hop.String()
		}
		peer = hop
	}

	// Every hop is a proxy, or the chain is malformed.
	return peer.String()
}
