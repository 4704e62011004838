package methylseq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

const gsPrefix = "gs://"

// ErrNoStorageClient is returned when a gs:// path is used without a client.
var ErrNoStorageClient = errors.New("a Google Storage client is required for gs:// paths")

// IsGoogleStorage reports whether path names an object or prefix in Google
// Storage.
func IsGoogleStorage(path string) bool {
	return strings.HasPrefix(path, gsPrefix)
}

// SplitGoogleStoragePath separates a gs://bucket/object path into its bucket
// and object names. The object may be empty when the path is a bare bucket.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(path, gsPrefix)
	pathParts := strings.SplitN(trimmed, "/", 2)
	if pathParts[0] == "" {
		return "", "", fmt.Errorf("Tried to find a bucket in your google storage path %q but found none", path)
	}

	if len(pathParts) == 1 {
		return pathParts[0], "", nil
	}

	return pathParts[0], pathParts[1], nil
}

// Open opens a local file or a Google Storage object for reading. Local paths
// may begin with ~/.
func Open(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	if IsGoogleStorage(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrNoStorageClient)
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, err
		}

		rdr, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}

		return rdr, nil
	}

	local, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	return os.Open(local)
}

// OpenDecompressed opens path like Open and transparently decompresses it.
func OpenDecompressed(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	rc, err := Open(ctx, path, client)
	if err != nil {
		return nil, err
	}

	out, err := MaybeDecompress(rc)
	if err != nil {
		rc.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}

// ReadAll returns the decompressed contents of path.
func ReadAll(ctx context.Context, path string, client *storage.Client) ([]byte, error) {
	rc, err := OpenDecompressed(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Exists reports whether a local file or directory, or a Google Storage
// object, exists at path.
func Exists(ctx context.Context, path string, client *storage.Client) (bool, error) {
	if IsGoogleStorage(path) {
		if client == nil {
			return false, fmt.Errorf("%s: %w", path, ErrNoStorageClient)
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return false, err
		}

		_, err = client.Bucket(bucketName).Object(objectName).Attrs(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		} else if err != nil {
			return false, pfx.Err(err)
		}

		return true, nil
	}

	local, err := ExpandHome(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(local); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// ListDir returns the full paths of the files directly inside dir, sorted by
// name. Subdirectories are not descended into. For Google Storage, dir is
// treated as an object prefix.
func ListDir(ctx context.Context, dir string, client *storage.Client) ([]string, error) {
	if IsGoogleStorage(dir) {
		return listGoogleStorage(ctx, dir, client)
	}

	local, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(local)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		out = append(out, filepath.Join(local, entry.Name()))
	}

	// os.ReadDir already sorts by filename
	return out, nil
}

func listGoogleStorage(ctx context.Context, dir string, client *storage.Client) ([]string, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoStorageClient)
	}

	bucketName, prefix, err := SplitGoogleStoragePath(dir)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	out := make([]string, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", dir, err))
		}

		// Synthetic directory entries carry only a Prefix
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		out = append(out, gsPrefix+path.Join(bucketName, attrs.Name))
	}

	sort.Strings(out)

	return out, nil
}

// Create opens a local file or a Google Storage object for writing. For
// Google Storage, the object is only committed once Close returns without
// error.
func Create(ctx context.Context, path string, client *storage.Client) (io.WriteCloser, error) {
	if IsGoogleStorage(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrNoStorageClient)
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, err
		}

		return client.Bucket(bucketName).Object(objectName).NewWriter(ctx), nil
	}

	local, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	return os.Create(local)
}
