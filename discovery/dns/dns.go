// Package dns discovers engines as the IPv4 addresses a hostname resolves
// to, e.g. a headless service or a round-robin record.
package dns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/miekg/dns"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/logger"
)

// Backend is the name under which the resolved record appears in engine
// views.
const Backend = "dns"

const resolvConf = "/etc/resolv.conf"

func init() {
	discovery.RegisterAdapterFactory(discovery.ModeDNS, func(cfg discovery.Config, log *logger.Logger) (discovery.Adapter, error) {
		return NewAdapter(cfg.DNS, log)
	})
}

// RecordInfo is the raw payload of a DNS-discovered engine.
type RecordInfo struct {
	Address string `json:"address"`
	Family  int    `json:"family"`
	TTL     uint32 `json:"ttl"`
}

// Adapter resolves one hostname on every cycle.
type Adapter struct {
	client   dns.Client
	hostname string
	servers  []string
	// names are the fully qualified candidates tried in order.
	names []string
	log   *logger.Logger
}

var _ discovery.Adapter = (*Adapter)(nil)

// NewAdapter creates an adapter. Without a configured server the
// nameservers and search list of /etc/resolv.conf are used.
func NewAdapter(cfg discovery.DNSConfig, log *logger.Logger) (*Adapter, error) {
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("dns: hostname is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &Adapter{
		client:   dns.Client{Net: "udp", Timeout: cfg.Timeout},
		hostname: cfg.Hostname,
		log:      log,
	}

	if cfg.Server != "" {
		a.servers = []string{withPort(cfg.Server)}
		a.names = []string{dns.Fqdn(cfg.Hostname)}
		return a, nil
	}

	cc, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, fmt.Errorf("dns: read %s: %w", resolvConf, err)
	}
	for _, s := range cc.Servers {
		a.servers = append(a.servers, net.JoinHostPort(s, cc.Port))
	}
	a.names = cc.NameList(cfg.Hostname)
	if len(a.servers) == 0 {
		return nil, fmt.Errorf("dns: no nameserver in %s", resolvConf)
	}
	return a, nil
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

// ListEngines returns one record per A record. A name that does not exist
// yields an empty list, any other failure an error.
func (a *Adapter) ListEngines(ctx context.Context) ([]discovery.Record, error) {
	for _, name := range a.names {
		answers, found, err := a.lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			return records(answers), nil
		}
	}
	a.log.Debug("engine hostname not found", logger.Fields("hostname", a.hostname))
	return []discovery.Record{}, nil
}

// lookup queries the servers in order until one answers. found is false
// when the name does not exist.
func (a *Adapter) lookup(ctx context.Context, name string) (answers []*dns.A, found bool, err error) {
	msg := dns.Msg{
		Question: []dns.Question{
			{
				Name:   name,
				Qclass: dns.ClassINET,
				Qtype:  dns.TypeA,
			},
		},
		MsgHdr: dns.MsgHdr{
			Id:               dns.Id(),
			Opcode:           dns.OpcodeQuery,
			RecursionDesired: true,
		},
	}

	var lastErr error
	for _, server := range a.servers {
		r, _, err := a.client.ExchangeContext(ctx, &msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch r.Rcode {
		case dns.RcodeSuccess:
			for _, rr := range r.Answer {
				if rec, ok := rr.(*dns.A); ok {
					answers = append(answers, rec)
				}
			}
			return answers, true, nil
		case dns.RcodeNameError:
			return nil, false, nil
		default:
			lastErr = fmt.Errorf("%s from %s", dns.RcodeToString[r.Rcode], server)
		}
	}
	return nil, false, fmt.Errorf("dns: lookup %s: %w", strings.TrimSuffix(name, "."), lastErr)
}

func records(answers []*dns.A) []discovery.Record {
	out := make([]discovery.Record, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		ip := a.A.String()
		if seen[ip] {
			continue
		}
		seen[ip] = true
		out = append(out, discovery.Record{
			Key:       ip,
			Addresses: []string{ip},
			Labels:    map[string]string{},
			Backend:   Backend,
			Raw:       RecordInfo{Address: ip, Family: 4, TTL: a.Hdr.Ttl},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addresses[0] < out[j].Addresses[0] })
	return out
}
