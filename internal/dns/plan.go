package dns

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/keygen"
)

// DefaultTTL is the TTL of every planned record, in seconds.
const DefaultTTL = 300

const mxPriority = 10

// Record is one DNS record of the plan.
type Record struct {
	Type     string
	Name     string
	Content  string
	Priority uint16
}

// String formats r as a zone file line.
func (r Record) String() string {
	content := r.Content
	if r.Type == "TXT" {
		content = fmt.Sprintf("%q", content)
	}
	if r.Type == "MX" {
		return fmt.Sprintf("%s.\t%d\tIN\tMX\t%d %s.", r.Name, DefaultTTL, r.Priority, content)
	}
	if r.Type == "CNAME" {
		content += "."
	}
	return fmt.Sprintf("%s.\t%d\tIN\t%s\t%s", r.Name, DefaultTTL, r.Type, content)
}

// Addresses are the public IPs the hostnames resolve to.
type Addresses struct {
	// Web serves the web interface, usually the ingress controller.
	Web []string

	// SMTP is the address of the SMTP Service.
	SMTP []string
}

// DKIMName returns the name of the return path DKIM record.
func DKIMName(domain string) string {
	return postalconfig.DKIMIdentifier + "._domainkey." + postalconfig.ReturnPathHostname(domain)
}

// Plan returns the records for s. signingKey may be nil, in which case the
// DKIM record is left out. Web addresses default to the SMTP addresses.
func Plan(s *config.Settings, addrs Addresses, signingKey *keygen.SigningKey) ([]Record, error) {
	if s.Domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if len(addrs.SMTP) == 0 {
		return nil, fmt.Errorf("no SMTP address known for %s", s.SMTP.Hostname)
	}
	if len(addrs.Web) == 0 {
		addrs.Web = addrs.SMTP
	}

	domain := strings.ToLower(s.Domain)
	smtpHost := strings.ToLower(s.SMTP.Hostname)
	if smtpHost == "" {
		smtpHost = domain
	}
	mxHost := postalconfig.MXHostname(domain)

	var records []Record
	webRecords, err := addressRecords(domain, addrs.Web)
	if err != nil {
		return nil, err
	}
	records = append(records, webRecords...)

	smtpRecords, err := addressRecords(mxHost, addrs.SMTP)
	if err != nil {
		return nil, err
	}
	records = append(records, smtpRecords...)

	// The reverse DNS of the SMTP address names the HELO host, which must
	// resolve back to that address.
	if smtpHost == domain && !sameAddresses(webRecords, smtpRecords) {
		return nil, fmt.Errorf("smtp.hostname %s resolves to the web address, not the SMTP address; set smtp.hostname to a name of its own such as %s", smtpHost, mxHost)
	}
	if smtpHost != domain && smtpHost != mxHost {
		helo, err := addressRecords(smtpHost, addrs.SMTP)
		if err != nil {
			return nil, err
		}
		records = append(records, helo...)
	}

	records = append(records,
		Record{Type: "MX", Name: domain, Content: mxHost, Priority: mxPriority},
		Record{Type: "TXT", Name: postalconfig.SPFHostname(domain), Content: spfAddresses(addrs.SMTP)},
		Record{Type: "TXT", Name: domain, Content: "v=spf1 a mx include:" + postalconfig.SPFHostname(domain) + " ~all"},
		Record{Type: "CNAME", Name: postalconfig.ReturnPathHostname(domain), Content: domain},
		Record{Type: "MX", Name: postalconfig.RouteHostname(domain), Content: mxHost, Priority: mxPriority},
		Record{Type: "CNAME", Name: postalconfig.TrackHostname(domain), Content: domain},
	)

	if signingKey != nil {
		dkim, err := signingKey.DKIMRecord()
		if err != nil {
			return nil, fmt.Errorf("failed to build DKIM record: %w", err)
		}
		records = append(records, Record{Type: "TXT", Name: DKIMName(domain), Content: dkim})
	}
	return records, nil
}

// Names returns the distinct record names of records, sorted.
func Names(records []Record) []string {
	seen := make(map[string]bool, len(records))
	var names []string
	for _, r := range records {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names
}

func addressRecords(name string, ips []string) ([]Record, error) {
	var out []Record
	haveV4, haveV6 := false, false
	for _, raw := range ips {
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address %q for %s", raw, name)
		}
		// One address per family: providers replace the record in place.
		if ip.To4() != nil {
			if haveV4 {
				continue
			}
			haveV4 = true
			out = append(out, Record{Type: "A", Name: name, Content: ip.String()})
			continue
		}
		if haveV6 {
			continue
		}
		haveV6 = true
		out = append(out, Record{Type: "AAAA", Name: name, Content: ip.String()})
	}
	return out, nil
}

func sameAddresses(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Content != b[i].Content {
			return false
		}
	}
	return true
}

func spfAddresses(ips []string) string {
	parts := []string{"v=spf1"}
	for _, raw := range ips {
		ip := net.ParseIP(raw)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			parts = append(parts, "ip4:"+ip.String())
		} else {
			parts = append(parts, "ip6:"+ip.String())
		}
	}
	parts = append(parts, "~all")
	return strings.Join(parts, " ")
}
