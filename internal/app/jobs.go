package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/store"
)

const backupPrefix = "plants-"

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	spec := a.appConfig.Storage.BackupCron
	if spec == "" {
		return
	}
	if _, ok := a.store.(store.Snapshotter); !ok {
		zap.S().Infof("backup job disabled, driver %s has no snapshots", a.appConfig.Storage.Driver)
		return
	}
	_, err = a.sched.AddFunc(spec, a.SchedBackupTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
}

// SchedBackupTask snapshot job entry point
func (a *Application) SchedBackupTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if _, err := a.RunBackupNow(); err != nil {
		zap.L().Error("scheduled backup failed", zap.Error(err))
	}
}

// RunBackupNow writes a snapshot of the store into the backup directory,
// prunes old snapshots and returns the new file
func (a *Application) RunBackupNow() (string, error) {
	snap, ok := a.store.(store.Snapshotter)
	if !ok {
		return "", errors.Errorf("storage driver %s does not support snapshots", a.appConfig.Storage.Driver)
	}
	dir := a.appConfig.GetBackupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup directory")
	}
	name := filepath.Join(dir, fmt.Sprintf("%s%s.db", backupPrefix, time.Now().Format("20060102-150405.000000000")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", errors.Wrap(err, "create backup file")
	}
	size, err := snap.Snapshot(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(name)
		return "", errors.Wrap(err, "write snapshot")
	}
	zap.L().Info("catalog snapshot written",
		zap.String("file", name),
		zap.String("size", bytes.Format(size)))

	if err := pruneBackups(dir, a.appConfig.Storage.BackupKeep); err != nil {
		zap.L().Warn("failed to prune old backups", zap.Error(err))
	}
	return name, nil
}

// pruneBackups keeps the newest keep snapshots in dir; keep <= 0 keeps all
func pruneBackups(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".db") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil
	}
	// timestamped names sort chronologically
	sort.Strings(names)
	for _, n := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}
