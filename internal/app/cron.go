package app

import (
	"github.com/quicknotes/core/internal/modules/backup"
	pkgcron "github.com/quicknotes/core/internal/pkg/cron"
)

// registerCronJobs wires every scheduled background job. Jobs whose services
// are unconfigured register nothing.
func registerCronJobs(sched *pkgcron.Scheduler, backupSvc *backup.Service) {
	backupSvc.RegisterJob(sched)
}
