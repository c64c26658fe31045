// Package postal declares the Postal application: the web, smtp and worker
// Deployments, their shared configuration Secret, the Services and optional
// Ingress in front of them, and the one-shot initialization Job.
//
// Every role mounts the same {name}-config Secret at /config. Pod templates
// carry a checksum of that Secret so a configuration change rolls all three
// Deployments.
package postal
