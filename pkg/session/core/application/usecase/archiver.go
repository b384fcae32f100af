package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	"github.com/hjyangBig2/lighter/pkg/session/core/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/serialization"
)

// ErrArchiveNotFound is returned by OpenArchive for an unknown archive object.
var ErrArchiveNotFound = errors.New("archive not found")

const (
	archiveModule     = "archive"
	partitionPrefix   = "dt="
	partitionLayout   = "2006-01-02"
	archiveExtension  = ".parquet"
	archiveFilePrefix = "sessions_"
	uploadLayout      = "20060102150405"

	// parquetParallelism is the number of goroutines the parquet writer marshals with.
	parquetParallelism = 4
)

// ArchivedSession is one row of an archive file.
type ArchivedSession struct {
	ID           string `parquet:"name=id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Type         string `parquet:"name=type,type=BYTE_ARRAY,convertedtype=UTF8"`
	State        string `parquet:"name=state,type=BYTE_ARRAY,convertedtype=UTF8"`
	AppID        string `parquet:"name=app_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	AppInfo      string `parquet:"name=app_info,type=BYTE_ARRAY,convertedtype=UTF8"`
	SubmitParams string `parquet:"name=submit_params,type=BYTE_ARRAY,convertedtype=UTF8"`
	CreatedAt    int64  `parquet:"name=created_at,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	ContactedAt  *int64 `parquet:"name=contacted_at,type=INT64,convertedtype=TIMESTAMP_MILLIS,repetitiontype=OPTIONAL"`
}

// ArchiveResult reports one archive run.
type ArchiveResult struct {
	// Archived is the number of sessions written to storage.
	Archived int
	// Deleted is the number of archived sessions removed from the repository.
	Deleted int
	// Pruned is the number of archive objects removed by retention.
	Pruned int
	// Objects lists the uploaded object names.
	Objects []string
}

// ArchiverParams are the inputs of NewArchiver.
type ArchiverParams struct {
	fx.In
	Cfg      *config.Config
	Storage  repository.ApplicationStorage
	Resolver storage.StorageConnectionResolver
	Recorder metrics.MetricRecorder
	Clock    ports.Clock
}

// Archiver exports finished sessions to object storage as Parquet files, partitioned by creation day.
type Archiver struct {
	cfg      config.ArchiveConfig
	storage  repository.ApplicationStorage
	resolver storage.StorageConnectionResolver
	recorder metrics.MetricRecorder
	clock    ports.Clock
}

// NewArchiver creates an Archiver.
func NewArchiver(p ArchiverParams) *Archiver {
	return &Archiver{
		cfg:      p.Cfg.Lighter.Archive,
		storage:  p.Storage,
		resolver: p.Resolver,
		recorder: p.Recorder,
		clock:    p.Clock,
	}
}

// Archive exports up to BatchSize complete sessions that were not exported before. A partition that
// fails to upload is reported and its sessions stay unarchived; the others are still exported and then
// deleted or marked as archived. Archive objects past the retention window are removed afterwards.
func (a *Archiver) Archive(ctx context.Context) (*ArchiveResult, error) {
	start := a.clock.Now()
	result, err := a.archive(ctx)
	status := "success"
	if err != nil {
		status = "failure"
	}
	a.recorder.RecordDuration(ctx, "archive_export", a.clock.Now().Sub(start), map[string]string{"status": status})
	return result, err
}

func (a *Archiver) archive(ctx context.Context) (*ArchiveResult, error) {
	result := &ArchiveResult{}
	if a.cfg.StorageRef == "" {
		return result, exception.NewServiceErrorf(archiveModule, "archive storage_ref is not configured")
	}

	apps, err := a.storage.FindUnarchivedApplications(ctx, model.ApplicationTypeSession, model.CompleteStates(), a.cfg.BatchSize)
	if err != nil {
		return result, exception.NewServiceErrorf(archiveModule, "failed to load finished sessions", err)
	}

	conn, err := a.resolver.ResolveStorageConnection(ctx, a.cfg.StorageRef)
	if err != nil {
		return result, exception.NewServiceErrorf(archiveModule, "failed to resolve storage connection '%s'", a.cfg.StorageRef, err)
	}

	var multiErr *multierror.Error
	now := a.clock.Now().UTC()
	if len(apps) == 0 {
		logger.Debugf("No finished sessions to archive.")
	} else {
		multiErr = multierror.Append(multiErr, a.export(ctx, conn, apps, now, result))
	}
	if a.cfg.RetentionDays > 0 {
		multiErr = multierror.Append(multiErr, a.prune(ctx, conn, now, result))
	}
	return result, multiErr.ErrorOrNil()
}

func (a *Archiver) export(ctx context.Context, conn storage.StorageConnection, apps []*model.Application, now time.Time, result *ArchiveResult) error {
	partitions := make(map[string][]*model.Application)
	for _, app := range apps {
		key := partitionPrefix + app.CreatedAt.UTC().Format(partitionLayout)
		partitions[key] = append(partitions[key], app)
	}
	keys := make([]string, 0, len(partitions))
	for key := range partitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var multiErr *multierror.Error
	for _, key := range keys {
		items := partitions[key]
		buf, err := encodeArchive(items)
		if err != nil {
			multiErr = multierror.Append(multiErr, exception.NewServiceErrorf(archiveModule, "failed to encode partition '%s'", key, err))
			continue
		}

		fileName := fmt.Sprintf("%s%s_%s%s", archiveFilePrefix, now.Format(uploadLayout), uuid.NewString()[:8], archiveExtension)
		objectName := path.Join(a.cfg.Prefix, key, fileName)
		if err := conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewServiceErrorf(archiveModule, "failed to upload '%s'", objectName, err))
			continue
		}
		logger.Infof("Archived %d sessions of partition '%s' to '%s'.", len(items), key, objectName)
		result.Archived += len(items)
		result.Objects = append(result.Objects, objectName)

		if !a.cfg.DeleteArchived {
			ids := make([]string, 0, len(items))
			for _, app := range items {
				ids = append(ids, app.ID)
			}
			if err := a.storage.MarkApplicationsArchived(ctx, ids, now); err != nil {
				multiErr = multierror.Append(multiErr, exception.NewServiceErrorf(archiveModule, "failed to mark partition '%s' as archived", key, err))
			}
			continue
		}
		for _, app := range items {
			if err := a.storage.DeleteApplication(ctx, app.ID); err != nil {
				multiErr = multierror.Append(multiErr, exception.NewServiceErrorf(archiveModule, "failed to delete archived session %s", app.ID, err))
				continue
			}
			result.Deleted++
		}
	}
	return multiErr.ErrorOrNil()
}

// prune removes archive objects uploaded before the retention window. Objects whose name does not
// carry an upload time are left alone.
func (a *Archiver) prune(ctx context.Context, conn storage.StorageConnection, now time.Time, result *ArchiveResult) error {
	cutoff := now.AddDate(0, 0, -a.cfg.RetentionDays)
	var expired []string
	err := conn.ListObjects(ctx, "", a.listPrefix(), func(objectName string) error {
		if uploaded, ok := uploadTime(objectName); ok && uploaded.Before(cutoff) {
			expired = append(expired, objectName)
		}
		return nil
	})
	if err != nil {
		return exception.NewServiceErrorf(archiveModule, "failed to list archive objects", err)
	}

	var multiErr *multierror.Error
	for _, objectName := range expired {
		if err := conn.DeleteObject(ctx, "", objectName); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewServiceErrorf(archiveModule, "failed to prune '%s'", objectName, err))
			continue
		}
		result.Pruned++
	}
	if result.Pruned > 0 {
		logger.Infof("Pruned %d archive objects uploaded before %s.", result.Pruned, cutoff.Format(time.RFC3339))
	}
	return multiErr.ErrorOrNil()
}

// ListArchives returns the names of all archive objects, sorted.
func (a *Archiver) ListArchives(ctx context.Context) ([]string, error) {
	conn, err := a.resolver.ResolveStorageConnection(ctx, a.cfg.StorageRef)
	if err != nil {
		return nil, exception.NewServiceErrorf(archiveModule, "failed to resolve storage connection '%s'", a.cfg.StorageRef, err)
	}
	names := []string{}
	err = conn.ListObjects(ctx, "", a.listPrefix(), func(objectName string) error {
		if strings.HasSuffix(objectName, archiveExtension) {
			names = append(names, objectName)
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewServiceErrorf(archiveModule, "failed to list archive objects", err)
	}
	sort.Strings(names)
	return names, nil
}

// OpenArchive opens one archive object for reading. Names outside the archive prefix yield ErrArchiveNotFound.
func (a *Archiver) OpenArchive(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if path.Clean(objectName) != objectName || !strings.HasPrefix(objectName, a.listPrefix()) ||
		!strings.HasSuffix(objectName, archiveExtension) {
		return nil, fmt.Errorf("%w: '%s'", ErrArchiveNotFound, objectName)
	}
	conn, err := a.resolver.ResolveStorageConnection(ctx, a.cfg.StorageRef)
	if err != nil {
		return nil, exception.NewServiceErrorf(archiveModule, "failed to resolve storage connection '%s'", a.cfg.StorageRef, err)
	}
	r, err := conn.Download(ctx, "", objectName)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: '%s'", ErrArchiveNotFound, objectName)
	}
	if err != nil {
		return nil, exception.NewServiceErrorf(archiveModule, "failed to open '%s'", objectName, err)
	}
	return r, nil
}

func (a *Archiver) listPrefix() string {
	if a.cfg.Prefix == "" {
		return ""
	}
	return strings.TrimSuffix(a.cfg.Prefix, "/") + "/"
}

// uploadTime parses the upload timestamp out of an archive file name ("sessions_<ts>_<id>.parquet").
func uploadTime(objectName string) (time.Time, bool) {
	base := path.Base(objectName)
	if !strings.HasPrefix(base, archiveFilePrefix) || !strings.HasSuffix(base, archiveExtension) {
		return time.Time{}, false
	}
	stamp, _, found := strings.Cut(strings.TrimPrefix(base, archiveFilePrefix), "_")
	if !found {
		return time.Time{}, false
	}
	uploaded, err := time.Parse(uploadLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return uploaded, true
}

// encodeArchive writes the sessions as one SNAPPY-compressed Parquet file.
func encodeArchive(apps []*model.Application) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(ArchivedSession), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, app := range apps {
		row, err := toArchivedSession(app)
		if err != nil {
			return nil, err
		}
		if err := pw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write session %s: %w", app.ID, err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf, nil
}

func toArchivedSession(app *model.Application) (ArchivedSession, error) {
	params := app.SubmitParams
	params.Conf = serialization.MaskConf(params.Conf)
	encoded, err := json.Marshal(params)
	if err != nil {
		return ArchivedSession{}, fmt.Errorf("failed to encode submit params of session %s: %w", app.ID, err)
	}

	row := ArchivedSession{
		ID:           app.ID,
		Type:         string(app.Type),
		State:        string(app.State),
		AppID:        app.AppID,
		AppInfo:      app.AppInfo,
		SubmitParams: string(encoded),
		CreatedAt:    app.CreatedAt.UnixMilli(),
	}
	if app.ContactedAt != nil {
		millis := app.ContactedAt.UnixMilli()
		row.ContactedAt = &millis
	}
	return row, nil
}

