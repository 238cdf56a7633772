package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/database"
	"github.com/stavrou/ballast/internal/events"
)

const (
	archivePrefix  = "ballast-backup-"
	archiveSuffix  = ".tar.gz"
	timestampShape = "2006-01-02-150405"
)

// Storage is the slice of the object store the service needs.
type Storage interface {
	Bucket() string
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Metadata describes the contents of one backup archive.
type Metadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database inside a backup.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// Info describes one backup stored remotely.
type Info struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
}

// Result summarizes one completed backup run.
type Result struct {
	Key       string  `json:"key"`
	Bytes     int64   `json:"bytes"`
	Databases int     `json:"databases"`
	Deleted   int     `json:"deleted"`
	Duration  float64 `json:"duration_s"`
}

// ServiceConfig holds backup behavior settings
type ServiceConfig struct {
	DataDir string
	Prefix  string // Key prefix inside the bucket
	Keep    int    // Snapshots retained after rotation; 0 keeps everything
}

// Service creates backup archives and uploads them to object storage.
type Service struct {
	storage   Storage
	databases []*database.DB
	cfg       ServiceConfig
	bus       *events.Bus
	log       zerolog.Logger
}

// NewService creates a new backup service
func NewService(storage Storage, databases []*database.DB, cfg ServiceConfig, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		storage:   storage,
		databases: databases,
		cfg:       cfg,
		bus:       bus,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// Run creates a backup archive of every database, uploads it and rotates
// old snapshots. WAL contents are checkpointed into the main files first
// so the copies are self-contained.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	s.log.Info().Msg("Starting backup")

	stagingDir := filepath.Join(s.cfg.DataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	meta := Metadata{Timestamp: start.UTC()}
	var fileNames []string

	for _, db := range s.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return nil, fmt.Errorf("failed to checkpoint %s: %w", db.Name(), err)
		}

		fileName := db.Name() + ".db"
		stagedPath := filepath.Join(stagingDir, fileName)
		if err := copyFile(db.Path(), stagedPath); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", db.Name(), err)
		}

		info, err := os.Stat(stagedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat staged %s: %w", db.Name(), err)
		}

		checksum, err := fileChecksum(stagedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to checksum %s: %w", db.Name(), err)
		}

		meta.Databases = append(meta.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  fileName,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		fileNames = append(fileNames, fileName)
	}

	metaPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metaPath, meta); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	fileNames = append(fileNames, "backup-metadata.json")

	archiveName := archivePrefix + start.UTC().Format(timestampShape) + archiveSuffix
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, stagingDir, fileNames); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	key := s.objectKey(archiveName)
	if err := s.storage.Upload(ctx, key, archiveFile); err != nil {
		return nil, err
	}

	deleted, err := s.rotate(ctx)
	if err != nil {
		// The new snapshot is already safe, rotation can wait for the next run.
		s.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	result := &Result{
		Key:       key,
		Bytes:     archiveInfo.Size(),
		Databases: len(s.databases),
		Deleted:   deleted,
		Duration:  time.Since(start).Seconds(),
	}

	if s.bus != nil {
		s.bus.EmitTyped("backup", &events.BackupCompletedData{
			Bucket:   s.storage.Bucket(),
			Objects:  result.Databases,
			Bytes:    result.Bytes,
			Duration: result.Duration,
		})
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", result.Bytes).
		Int("deleted", deleted).
		Msg("Backup completed")

	return result, nil
}

// ListBackups returns stored backups, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]Info, error) {
	objects, err := s.storage.List(ctx, s.objectKey(archivePrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]Info, 0, len(objects))
	for _, obj := range objects {
		ts, ok := parseArchiveTimestamp(obj.Key)
		if !ok {
			continue
		}
		backups = append(backups, Info{Key: obj.Key, Timestamp: ts, SizeBytes: obj.Size})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// rotate deletes backups beyond the retention count.
func (s *Service) rotate(ctx context.Context) (int, error) {
	if s.cfg.Keep <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, victim := range rotationVictims(backups, s.cfg.Keep) {
		if err := s.storage.Delete(ctx, victim.Key); err != nil {
			s.log.Error().Err(err).Str("key", victim.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", victim.Key).Msg("Deleted old backup")
		deleted++
	}

	return deleted, nil
}

// rotationVictims returns the backups to delete so that at most keep
// remain. Input must be sorted newest first.
func rotationVictims(backups []Info, keep int) []Info {
	if keep <= 0 || len(backups) <= keep {
		return nil
	}
	return backups[keep:]
}

func (s *Service) objectKey(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return strings.TrimSuffix(s.cfg.Prefix, "/") + "/" + name
}

// parseArchiveTimestamp extracts the timestamp from an archive key like
// "backups/ballast-backup-2026-08-29-013000.tar.gz".
func parseArchiveTimestamp(key string) (time.Time, bool) {
	name := key
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
		return time.Time{}, false
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
	ts, err := time.Parse(timestampShape, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, meta Metadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(meta)
}

func createArchive(archivePath, sourceDir string, fileNames []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, name := range fileNames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}

	return nil
}
