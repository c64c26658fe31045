package stack

// Outputs are the computed endpoint names and URLs of an installation.
type Outputs struct {
	Namespace       string `json:"namespace"`
	WebURL          string `json:"webUrl"`
	SMTPServiceName string `json:"smtpServiceName"`
	SMTPServiceType string `json:"smtpServiceType"`

	// MariaDBServiceName is empty in external mode.
	MariaDBServiceName string `json:"mariadbServiceName"`
	MariaDBEndpoint    string `json:"mariadbEndpoint"`

	AdminEmail      string `json:"adminEmail"`
	AdminSecretName string `json:"adminSecretName"`

	// SMTPAddress is the load balancer address, filled only from a live cluster.
	SMTPAddress string `json:"smtpAddress,omitempty"`
}

// Row is one label/value pair for table output.
type Row struct {
	Label string
	Value string
}

// Rows returns the outputs in display order.
func (o Outputs) Rows() []Row {
	mariadbService := o.MariaDBServiceName
	if mariadbService == "" {
		mariadbService = "(external)"
	}
	rows := []Row{
		{"Namespace", o.Namespace},
		{"Web URL", o.WebURL},
		{"SMTP service", o.SMTPServiceName},
		{"SMTP service type", o.SMTPServiceType},
		{"MariaDB service", mariadbService},
		{"MariaDB endpoint", o.MariaDBEndpoint},
		{"Admin email", o.AdminEmail},
		{"Admin secret", o.AdminSecretName},
	}
	if o.SMTPAddress != "" {
		rows = append(rows, Row{"SMTP address", o.SMTPAddress})
	}
	return rows
}
