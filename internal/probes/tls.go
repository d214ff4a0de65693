package probes

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/phishmeter/phishmeter/internal/config"
)

// TLSInfo carries certificate signals from a TLS handshake on :443.
type TLSInfo struct {
	Supported     bool
	Version       string
	Subject       string
	Issuer        string
	DaysRemaining int
	SelfSigned    bool
}

// TLSProbe performs a bounded TLS handshake and extracts basic certificate
// signals. Hosts without TLS, unreachable hosts, and handshake failures all
// report the zero-value TLSInfo.
type TLSProbe struct {
	timeout time.Duration
}

func NewTLSProbe(cfg config.Settings) *TLSProbe {
	return &TLSProbe{timeout: cfg.TLSTimeout}
}

func (p *TLSProbe) Check(ctx context.Context, host string) TLSInfo {
	info := TLSInfo{}
	if host == "" {
		return info
	}

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, "443"), &tls.Config{
		ServerName: host,
	})
	if err != nil {
		return info
	}
	defer conn.Close()

	state := conn.ConnectionState()
	info.Supported = true
	info.Version = tls.VersionName(state.Version)

	certs := state.PeerCertificates
	if len(certs) == 0 {
		return info
	}

	leaf := certs[0]
	info.Subject = leaf.Subject.String()
	info.Issuer = leaf.Issuer.String()
	info.SelfSigned = info.Subject != "" && info.Subject == info.Issuer

	days := int(time.Until(leaf.NotAfter).Hours() / 24)
	if days < 0 {
		days = 0
	}
	info.DaysRemaining = days

	return info
}
