package postalconfig

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mount layout shared by every Postal container.
const (
	MountPath      = "/config"
	ConfigKey      = "postal.yml"
	SigningKeyKey  = "signing.key"
	SigningKeyPath = MountPath + "/" + SigningKeyKey

	WebPort  = 5000
	SMTPPort = 25

	// MessageDatabasePrefix is the prefix of per-server message databases.
	// The MariaDB init script grants the Postal user access to "{prefix}-%".
	MessageDatabasePrefix = "postal"
)

// Database holds resolved connection parameters.
type Database struct {
	Host     string
	Port     int
	Username string
	Password string
	Name     string
}

// Params are the resolved inputs of postal.yml.
type Params struct {
	WebHostname  string
	SMTPHostname string
	Database     Database
	SecretKey    string
}

// Document is the postal.yml version 2 schema.
type Document struct {
	Version    int              `yaml:"version"`
	Postal     PostalSection    `yaml:"postal"`
	WebServer  ServerSection    `yaml:"web_server"`
	SMTPServer ServerSection    `yaml:"smtp_server"`
	MainDB     MainDBSection    `yaml:"main_db"`
	MessageDB  MessageDBSection `yaml:"message_db"`
	DNS        DNSSection       `yaml:"dns"`
	Rails      RailsSection     `yaml:"rails"`
	SMTP       SMTPSection      `yaml:"smtp"`
}

type PostalSection struct {
	WebHostname    string `yaml:"web_hostname"`
	WebProtocol    string `yaml:"web_protocol"`
	SMTPHostname   string `yaml:"smtp_hostname"`
	UseIPPools     bool   `yaml:"use_ip_pools"`
	SigningKeyPath string `yaml:"signing_key_path"`
}

type ServerSection struct {
	DefaultBindAddress string `yaml:"default_bind_address"`
	DefaultPort        int    `yaml:"default_port"`
}

type MainDBSection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type MessageDBSection struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	DatabaseNamePrefix string `yaml:"database_name_prefix"`
}

type DNSSection struct {
	MXRecords        []string `yaml:"mx_records"`
	SPFInclude       string   `yaml:"spf_include"`
	ReturnPathDomain string   `yaml:"return_path_domain"`
	RouteDomain      string   `yaml:"route_domain"`
	TrackDomain      string   `yaml:"track_domain"`
	DKIMIdentifier   string   `yaml:"dkim_identifier"`
}

type RailsSection struct {
	Environment string `yaml:"environment"`
	SecretKey   string `yaml:"secret_key"`
}

type SMTPSection struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
}

// DKIMIdentifier is the DKIM selector Postal signs with.
const DKIMIdentifier = "postal"

// Hostnames derived from the web hostname.
func MXHostname(domain string) string         { return "mx." + domain }
func SPFHostname(domain string) string        { return "spf." + domain }
func ReturnPathHostname(domain string) string { return "rp." + domain }
func RouteHostname(domain string) string      { return "routes." + domain }
func TrackHostname(domain string) string      { return "track." + domain }

// validate reports the first unresolved input.
func (p Params) validate() error {
	required := []struct {
		name, value string
	}{
		{"web hostname", p.WebHostname},
		{"smtp hostname", p.SMTPHostname},
		{"database host", p.Database.Host},
		{"database username", p.Database.Username},
		{"database password", p.Database.Password},
		{"database name", p.Database.Name},
		{"secret key", p.SecretKey},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("postal.yml: %s is not resolved", r.name)
		}
	}
	if p.Database.Port <= 0 {
		return fmt.Errorf("postal.yml: database port is not resolved")
	}
	return nil
}

// Build returns the postal.yml document for p.
func Build(p Params) (*Document, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	db := p.Database
	return &Document{
		Version: 2,
		Postal: PostalSection{
			WebHostname:    p.WebHostname,
			WebProtocol:    "https",
			SMTPHostname:   p.SMTPHostname,
			UseIPPools:     false,
			SigningKeyPath: SigningKeyPath,
		},
		WebServer:  ServerSection{DefaultBindAddress: "0.0.0.0", DefaultPort: WebPort},
		SMTPServer: ServerSection{DefaultBindAddress: "::", DefaultPort: SMTPPort},
		MainDB: MainDBSection{
			Host:     db.Host,
			Port:     db.Port,
			Username: db.Username,
			Password: db.Password,
			Database: db.Name,
		},
		MessageDB: MessageDBSection{
			Host:               db.Host,
			Port:               db.Port,
			Username:           db.Username,
			Password:           db.Password,
			DatabaseNamePrefix: MessageDatabasePrefix,
		},
		DNS: DNSSection{
			MXRecords:        []string{MXHostname(p.WebHostname)},
			SPFInclude:       SPFHostname(p.WebHostname),
			ReturnPathDomain: ReturnPathHostname(p.WebHostname),
			RouteDomain:      RouteHostname(p.WebHostname),
			TrackDomain:      TrackHostname(p.WebHostname),
			DKIMIdentifier:   DKIMIdentifier,
		},
		Rails: RailsSection{Environment: "production", SecretKey: p.SecretKey},
		SMTP: SMTPSection{
			Host:        "127.0.0.1",
			Port:        SMTPPort,
			FromName:    "Postal",
			FromAddress: "postal@" + p.WebHostname,
		},
	}, nil
}

// Render builds and encodes postal.yml, then parses the output back to
// guarantee it is valid YAML with the expected shape.
func Render(p Params) ([]byte, error) {
	doc, err := Build(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode postal.yml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode postal.yml: %w", err)
	}

	if _, err := Parse(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("rendered postal.yml does not parse: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a postal.yml document strictly.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse postal.yml: %w", err)
	}
	if doc.Version != 2 {
		return nil, fmt.Errorf("unsupported postal.yml version %d", doc.Version)
	}
	return &doc, nil
}

// DeriveSecretKey returns a stable secret_key_base for installations that do
// not supply one. It changes whenever the signing key or domain changes.
func DeriveSecretKey(signingKey []byte, domain string) string {
	h := sha512.New()
	h.Write([]byte("k8postal/secret-key\x00"))
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(signingKey)
	return hex.EncodeToString(h.Sum(nil))
}
