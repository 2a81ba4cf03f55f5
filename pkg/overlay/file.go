package overlay

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	UpdatedAt time.Time        `yaml:"updated_at,omitempty"`
	FollowUps []plans.FollowUp `yaml:"follow_ups"`
}

// FileStore keeps follow-ups in a single YAML document. Each batch rewrites
// the document through a temporary file and a rename, so readers see either
// the old or the new document.
type FileStore struct {
	mu   sync.Mutex
	path string
	opts *options
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the YAML file at path. The file is
// created on the first write.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{path: path, opts: newOptions(opts)}
}

// Backend implements Store.
func (f *FileStore) Backend() string { return DriverFile }

// Path returns the document path.
func (f *FileStore) Path() string { return f.path }

// ReadAll implements Store. A missing file reads as empty.
func (f *FileStore) ReadAll(ctx context.Context) ([]plans.FollowUp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, errors.NewOverlayReadError(DriverFile, err)
	}
	return doc.FollowUps, nil
}

// UpsertBatch implements Store.
func (f *FileStore) UpsertBatch(ctx context.Context, records []plans.FollowUp) error {
	ids := plans.IDs(records)
	if err := ctx.Err(); err != nil {
		return errors.NewPersistError(DriverFile, ids, err)
	}
	batch, err := prepareBatch(f.opts.normalizer, records)
	if err != nil {
		return errors.NewPersistError(DriverFile, ids, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return errors.NewPersistError(DriverFile, ids, err)
	}

	pos := make(map[plans.PlanID]int, len(doc.FollowUps))
	for i, r := range doc.FollowUps {
		pos[f.opts.normalizer.Normalize(string(r.PlanID))] = i
	}
	for _, r := range batch {
		if i, ok := pos[r.PlanID]; ok {
			doc.FollowUps[i] = r
			continue
		}
		pos[r.PlanID] = len(doc.FollowUps)
		doc.FollowUps = append(doc.FollowUps, r)
	}
	doc.UpdatedAt = f.opts.now().UTC()

	if err := f.store(doc); err != nil {
		return errors.NewPersistError(DriverFile, ids, err)
	}
	return nil
}

// Close implements Store.
func (f *FileStore) Close() error { return nil }

func (f *FileStore) load() (*fileDocument, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &fileDocument{}, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", f.path, err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("yaml", f.path, err)
	}
	return &doc, nil
}

func (f *FileStore) store(doc *fileDocument) error {
	data, err := yaml.MarshalWithOptions(doc, yaml.Indent(2))
	if err != nil {
		return errors.WrapParse("yaml", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.WrapIO("rename", f.path, err)
	}
	return nil
}
