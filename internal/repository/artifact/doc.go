// Package artifact publishes finished package files to S3-compatible object storage.
package artifact
