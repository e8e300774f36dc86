// Package blobstore keeps uploaded source files on the local filesystem
// and hands back the public URL they are served from.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"coursekb/internal/util"
)

type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, err
	}
	return &Local{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// sidecar is written next to each blob so the file can be identified without the database.
type sidecar struct {
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	SHA256      string    `json:"sha256"`
	StoredAt    time.Time `json:"storedAt"`
}

// Put writes data under key and returns its public URL.
func (l *Local) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := util.SafeJoin(l.Root, key)
	if err != nil {
		return "", fmt.Errorf("blob key: %w", err)
	}
	if err := util.WriteFileAtomic(p, data); err != nil {
		return "", fmt.Errorf("store blob %s: %w", key, err)
	}
	meta := sidecar{
		Key:         key,
		ContentType: contentType,
		Size:        len(data),
		SHA256:      util.SHA256Hex(data),
		StoredAt:    time.Now().UTC(),
	}
	if err := util.WriteJSONAtomic(p+".meta.json", meta); err != nil {
		_ = os.Remove(p)
		return "", fmt.Errorf("store blob metadata %s: %w", key, err)
	}
	return l.URL(key), nil
}

func (l *Local) URL(key string) string {
	return l.BaseURL + "/" + strings.TrimLeft(path.Clean("/"+key), "/")
}

// Key builds the storage key for an uploaded file.
func Key(courseID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%s/%d-%s", courseID, at.UnixMilli(), name)
}
