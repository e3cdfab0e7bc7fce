package adminapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/plantcatalog/internal/store"
	"github.com/talkincode/plantcatalog/internal/webserver"
)

func registerSystemRoutes() {
	webserver.ApiGET("/health", health)
	webserver.ApiGET("/system/backup", downloadBackup)
	webserver.ApiPOST("/system/backup/run", triggerBackup)
}

func health(c echo.Context) error {
	return ok(c, map[string]string{"status": "ok"})
}

// downloadBackup streams a consistent copy of the data file
func downloadBackup(c echo.Context) error {
	snap, isSnap := GetCatalog(c).Store().(store.Snapshotter)
	if !isSnap {
		return fail(c, http.StatusNotImplemented, "The configured storage driver does not support snapshots", nil)
	}
	filename := fmt.Sprintf("plantcatalog_backup_%s.db", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	c.Response().WriteHeader(http.StatusOK)
	_, err := snap.Snapshot(c.Response())
	return err
}

// triggerBackup runs the scheduled backup job immediately
func triggerBackup(c echo.Context) error {
	file, err := GetAppContext(c).RunBackupNow()
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error(), nil)
	}
	return ok(c, map[string]string{"file": filepath.Base(file)})
}
