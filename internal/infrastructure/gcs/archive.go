// Package gcs stores message export archives in Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
)

// Archive writes exports as private objects. With a positive SignTTL the
// returned link is a signed URL; otherwise, or when signing is not possible
// with the current credentials, it is the gs:// URI.
type Archive struct {
	client  *storage.Client
	bucket  string
	SignTTL time.Duration
}

func NewArchive(client *storage.Client, bucket string, signTTL time.Duration) *Archive {
	return &Archive{client: client, bucket: bucket, SignTTL: signTTL}
}

// ObjectPath names a new export object for userID.
func ObjectPath(userID string) string {
	return path.Join("exports", userID, uuid.NewString()+".json")
}

// Put uploads a JSON export for userID and returns a link to it.
func (a *Archive) Put(ctx context.Context, userID string, data []byte) (string, error) {
	object := ObjectPath(userID)
	meta := map[string]string{"user_id": userID}
	if err := helpers.UploadObject(ctx, a.client, a.bucket, object, "application/json", meta, bytes.NewReader(data)); err != nil {
		return "", err
	}
	if a.SignTTL > 0 {
		if url, err := helpers.SignedURL(a.client, a.bucket, object, a.SignTTL); err == nil {
			return url, nil
		}
	}
	return helpers.ObjectURI(a.bucket, object), nil
}
