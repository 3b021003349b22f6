package server

import (
	"fmt"
	"io"
	"net"
	"strconv"
)

// printBanner tells the operator where the server can be reached.
func (s *Server) printBanner(w io.Writer, addr net.Addr) {
	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		s.logger.Warn("could not enumerate interface addresses", "error", err)
	}

	fmt.Fprintln(w, "HTTPS server running at:")
	for _, u := range bannerURLs(addr, ifaceAddrs, s.config.ACMEHost) {
		fmt.Fprintf(w, "   %s\n", u)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")
}

// bannerURLs lists the URLs a client can use to reach a listener on addr.
// For a wildcard listener that is localhost plus every non-loopback IPv4
// interface address; otherwise the bound host alone.
func bannerURLs(addr net.Addr, ifaceAddrs []net.Addr, acmeHost string) []string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return []string{"https://" + addr.String()}
	}
	port := strconv.Itoa(tcp.Port)

	var urls []string
	if acmeHost != "" {
		urls = append(urls, "https://"+net.JoinHostPort(acmeHost, port))
	}
	if tcp.IP != nil && !tcp.IP.IsUnspecified() {
		return append(urls, "https://"+net.JoinHostPort(tcp.IP.String(), port))
	}

	urls = append(urls, "https://"+net.JoinHostPort("localhost", port))
	for _, a := range ifaceAddrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		urls = append(urls, "https://"+net.JoinHostPort(ip.String(), port))
	}
	return urls
}
