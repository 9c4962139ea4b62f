package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/coursecache/internal/dbx"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/courses"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/deviations"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/revealrules"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/submissions"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Courses(db dbx.DBTX) courses.Repository
	Submissions(db dbx.DBTX) submissions.Repository
	Deviations(db dbx.DBTX) deviations.Repository
	RevealRules(db dbx.DBTX) revealrules.Repository
}
