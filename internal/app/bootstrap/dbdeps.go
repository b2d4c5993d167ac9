// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/residencyhub/internal/app/system/jobs"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Scheduler runs the nightly maintenance jobs. Startup registers and
	// starts them; Shutdown stops it before the client disconnects.
	Scheduler *jobs.Scheduler
}
