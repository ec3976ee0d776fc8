package storage

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// LocalStore keeps blobs on disk under Root/<resource type>/<id><ext>.
// Every Put gets a fresh ID, so identical uploads never share a file and
// deleting one leaves the others in place. The BLAKE3 digest of the bytes is
// recorded as the object's checksum.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, filename string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	resourceType := detectResourceType(head)

	tmp, err := os.CreateTemp(s.Root, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := blake3.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), br); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("close upload: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	publicID := strings.ReplaceAll(uuid.NewString(), "-", "") + ext

	dir := filepath.Join(s.Root, resourceType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, publicID)); err != nil {
		return Object{}, fmt.Errorf("store blob: %w", err)
	}

	return Object{
		PublicID:     publicID,
		URL:          s.BaseURL + "/" + path.Join("uploads", resourceType, publicID),
		Format:       strings.TrimPrefix(ext, "."),
		ResourceType: resourceType,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, publicID, resourceType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validSegment(publicID) || !validSegment(resourceType) {
		return ErrInvalidPublicID
	}

	err := os.Remove(filepath.Join(s.Root, resourceType, publicID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", publicID, err)
	}
	return nil
}

// validSegment rejects anything that could escape Root.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func detectResourceType(head []byte) string {
	contentType := http.DetectContentType(head)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return ResourceImage
	case strings.HasPrefix(contentType, "video/"):
		return ResourceVideo
	default:
		return ResourceRaw
	}
}
