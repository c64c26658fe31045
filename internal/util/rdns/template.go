package rdns

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DefaultTemplate points the PTR record at the SMTP hostname.
const DefaultTemplate = "{{ .SMTPHostname }}"

// TemplateVars holds variables for PTR template rendering.
type TemplateVars struct {
	Domain       string // public web hostname
	SMTPHostname string // HELO name Postal announces
	Instance     string // name prefix of the installation
	IPAddress    string // load balancer address, used for IPLabels
}

// data is the value passed to the template.
type data struct {
	TemplateVars
	IPLabels string
	IPType   string
}

// RenderTemplate renders a PTR template. An empty template yields DefaultTemplate.
func RenderTemplate(tmpl string, vars TemplateVars) (string, error) {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}

	d := data{TemplateVars: vars}
	if vars.IPAddress != "" {
		labels, ipType, err := reverseLabels(vars.IPAddress)
		if err != nil {
			return "", fmt.Errorf("failed to generate IP labels: %w", err)
		}
		d.IPLabels = labels
		d.IPType = ipType
	}

	t, err := template.New("rdns").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse rDNS template %q: %w", tmpl, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to render rDNS template %q: %w", tmpl, err)
	}

	result := strings.TrimSpace(buf.String())
	if result == "" {
		return "", fmt.Errorf("rDNS template %q rendered an empty name", tmpl)
	}
	return strings.TrimSuffix(result, "."), nil
}

// reverseLabels returns the reversed label form of an address and its family.
// IPv4: 1.2.3.4 -> 4.3.2.1
// IPv6: 2001:db8::1 -> 1.0.0.0 ... 8.b.d.0.1.0.0.2 (32 nibbles)
func reverseLabels(addr string) (string, string, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", "", fmt.Errorf("invalid IP address: %s", addr)
	}

	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d", v4[3], v4[2], v4[1], v4[0]), "ipv4", nil
	}

	v6 := ip.To16()
	nibbles := make([]string, 0, 32)
	for i := len(v6) - 1; i >= 0; i-- {
		nibbles = append(nibbles, fmt.Sprintf("%x", v6[i]&0x0f), fmt.Sprintf("%x", v6[i]>>4))
	}
	return strings.Join(nibbles, "."), "ipv6", nil
}
