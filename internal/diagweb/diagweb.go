// Package diagweb mounts ground-station debugging routes: a tailsql
// live-SQL console against the observing-log database and a handful of
// ECharts dashboards (blob count, pointing RMS, per-cycle solve/camera
// time) over
// HTTP. It never touches the pipeline's hot path — every handler here
// reads from the store after the fact.
package diagweb

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// Attach mounts the debug routes on mux, querying db for dashboard data.
// label appears in the tailsql UI's database picker.
func Attach(mux *http.ServeMux, db *sql.DB, label string) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("diagweb: create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+label, db, &tailsql.DBOptions{Label: label})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	d := &dashboard{db: db}
	debug.Handle("blob-count", "Blob count history", http.HandlerFunc(d.handleBlobCountChart))
	debug.Handle("pointing-rms", "Pointing RMS history", http.HandlerFunc(d.handlePointingRMSChart))
	debug.Handle("focus-sweep", "Solve and camera time per cycle", http.HandlerFunc(d.handleFocusSweepChart))
}

type dashboard struct {
	db *sql.DB
}

func (d *dashboard) fmtErr(w http.ResponseWriter, status int, context string, err error) {
	http.Error(w, fmt.Sprintf("%s: %v", context, err), status)
}
