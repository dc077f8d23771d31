package main

import (
	"net/http"

	"github.com/banshee-data/starcam/internal/httputil"
	"github.com/banshee-data/starcam/internal/params"
	"github.com/banshee-data/starcam/internal/pipeline"
	"github.com/banshee-data/starcam/internal/version"
)

// statusResponse is the JSON body served at /api/status: the solve-state
// enum, a full parameter-block snapshot, and build identification, for
// an operator or ground-station script polling the daemon over HTTP
// rather than tailing the observing log.
type statusResponse struct {
	State     string       `json:"state"`
	RunID     string       `json:"run_id,omitempty"`
	Version   string       `json:"version"`
	GitSHA    string       `json:"git_sha"`
	BuildTime string       `json:"build_time"`
	Params    params.State `json:"params"`
}

// statusHandler serves GET /api/status, following the teacher's
// internal/httputil response-writing helpers rather than hand-rolled
// json.Marshal/Write pairs in every handler.
func statusHandler(p *pipeline.Pipeline, block *params.Block, runID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		httputil.WriteJSONOK(w, statusResponse{
			State:     p.State().String(),
			RunID:     runID,
			Version:   version.Version,
			GitSHA:    version.GitSHA,
			BuildTime: version.BuildTime,
			Params:    block.Snapshot(),
		})
	}
}
