// Package s3 manages the object storage bucket that MariaDB dumps are
// uploaded to. It targets Hetzner Object Storage but works with any
// S3-compatible endpoint.
package s3
