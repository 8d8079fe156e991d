package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bagumbayan/brgydocs/internal/db"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/oxidb"
)

const ArchiveBucket = "brgy_certificates"

// OxiArchive stores certificates as blobs keyed "<id>/<format>".
type OxiArchive struct {
	pool *db.Pool
}

func NewOxiArchive(pool *db.Pool) *OxiArchive {
	return &OxiArchive{pool: pool}
}

func (r *OxiArchive) EnsureBucket(ctx context.Context) error {
	if err := r.pool.Get().CreateBucket(ctx, ArchiveBucket); err != nil && !oxidb.IsExists(err) {
		return err
	}
	return nil
}

func archiveKey(id string, f models.Format) string {
	return id + "/" + string(f)
}

func (r *OxiArchive) Put(ctx context.Context, doc *models.GeneratedDocument, content []byte) error {
	meta := map[string]string{
		"type":      string(doc.Type),
		"fileName":  doc.FileName,
		"createdAt": doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		"size":      strconv.Itoa(len(content)),
	}
	err := r.pool.Get().PutObject(ctx, ArchiveBucket, archiveKey(doc.ID, doc.Format), content, doc.ContentType, meta)
	if err != nil {
		return fmt.Errorf("archive certificate: %w", err)
	}
	return nil
}

func (r *OxiArchive) Get(ctx context.Context, id string, f models.Format) (*models.GeneratedDocument, []byte, error) {
	obj, err := r.pool.Get().GetObject(ctx, ArchiveBucket, archiveKey(id, f))
	if err != nil {
		if oxidb.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	created, _ := time.Parse(time.RFC3339Nano, obj.Metadata["createdAt"])
	return &models.GeneratedDocument{
		ID:          id,
		Type:        models.DocumentType(obj.Metadata["type"]),
		Format:      f,
		FileName:    obj.Metadata["fileName"],
		ContentType: obj.ContentType,
		Size:        int64(len(obj.Data)),
		CreatedAt:   created,
	}, obj.Data, nil
}

func (r *OxiArchive) List(ctx context.Context, limit int) ([]models.GeneratedDocument, error) {
	objs, err := r.pool.Get().ListObjects(ctx, ArchiveBucket, "", 0)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	docs := make([]models.GeneratedDocument, 0, len(objs))
	for _, o := range objs {
		key, _ := o["key"].(string)
		id, format, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		meta, _ := o["metadata"].(map[string]any)
		str := func(k string) string { v, _ := meta[k].(string); return v }
		created, _ := time.Parse(time.RFC3339Nano, str("createdAt"))
		size, _ := strconv.ParseInt(str("size"), 10, 64)
		ct, _ := o["content_type"].(string)
		docs = append(docs, models.GeneratedDocument{
			ID:          id,
			Type:        models.DocumentType(str("type")),
			Format:      models.Format(format),
			FileName:    str("fileName"),
			ContentType: ct,
			Size:        size,
			CreatedAt:   created,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (r *OxiArchive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	docs, err := r.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range docs {
		if d.CreatedAt.IsZero() || !d.CreatedAt.Before(cutoff) {
			continue
		}
		err := r.pool.Get().DeleteObject(ctx, ArchiveBucket, archiveKey(d.ID, d.Format))
		if err != nil && !oxidb.IsNotFound(err) {
			return removed, fmt.Errorf("prune certificate %s: %w", d.ID, err)
		}
		removed++
	}
	return removed, nil
}
