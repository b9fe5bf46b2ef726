// Package docstore archives synthesized document snapshots to the
// object store so a point-in-time view survives later mutations.
package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/metadata"
)

// Snapshot is one archived view of a record's document.
type Snapshot struct {
	RecordID string          `json:"record_id"`
	TakenAt  time.Time       `json:"taken_at"`
	Actor    string          `json:"actor,omitempty"`
	TokenURI string          `json:"token_uri"`
	Document json.RawMessage `json:"document,omitempty"`
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store writes snapshots as JSON objects under records/<id>/.
type Store struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

func NewStore(client objectPutter, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("object store client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	return &Store{client: client, bucket: bucket, now: time.Now}, nil
}

// Publish archives the current document for a record and returns the
// object key. Inline data URIs are decoded so the archived object holds
// the document itself, not the encoding.
func (s *Store) Publish(ctx context.Context, id domain.RecordID, actor string, tokenURI string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("document store not initialized")
	}
	if id.IsZero() {
		return "", errors.New("record id is required")
	}
	if strings.TrimSpace(tokenURI) == "" {
		return "", errors.New("token uri is required")
	}

	snapshot := Snapshot{
		RecordID: id.Hex(),
		TakenAt:  s.now().UTC(),
		Actor:    strings.TrimSpace(actor),
		TokenURI: tokenURI,
	}
	if strings.HasPrefix(tokenURI, metadata.DataURIPrefix) {
		blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(tokenURI, metadata.DataURIPrefix))
		if err != nil {
			return "", fmt.Errorf("decode document: %w", err)
		}
		if !json.Valid(blob) {
			return "", errors.New("decode document: not valid JSON")
		}
		snapshot.Document = blob
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("records/%s/%s.json", id.Hex(), uuid.NewString())
	_, err = s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(body),
		int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("put snapshot: %w", err)
	}
	return key, nil
}

// ObjectRef renders the stable reference for an archived object.
func (s *Store) ObjectRef(key string) string {
	if s == nil {
		return ""
	}
	return "s3://" + s.bucket + "/" + key
}
